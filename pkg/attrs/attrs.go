// Package attrs reads slog-style key/value pairs ([k1, v1, k2, v2, ...]) so the same pairs that
// go to the logger can feed other sinks.
package attrs

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ExtractString returns the string value paired with key, or "" when the key is absent or its
// value is not a string.
func ExtractString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			if v, ok := kv[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// SpanAttributes converts the string pairs named by keys into OpenTelemetry attributes.
// Underscores become dots, so "case_id" is recorded as "case.id". Absent keys are skipped.
func SpanAttributes(kv []any, keys ...string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		if v := ExtractString(kv, key); v != "" {
			out = append(out, attribute.String(strings.ReplaceAll(key, "_", "."), v))
		}
	}
	return out
}

package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, remoteAddr: "10.0.0.2:443", want: "203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remoteAddr: "10.0.0.2:443", want: "198.51.100.4"},
		{name: "ipv4 remote", remoteAddr: "192.0.2.1:5123", want: "192.0.2.1"},
		{name: "ipv6 remote", remoteAddr: "[::1]:5123", want: "::1"},
		{name: "no port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{name: "empty", remoteAddr: "", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var ip, ua, requestID string
	h := chimw.RequestID(ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
		requestID = requestcontext.RequestID(r.Context())
	})))

	r := httptest.NewRequest(http.MethodGet, "/cases", nil)
	r.RemoteAddr = "192.0.2.1:5123"
	r.Header.Set("User-Agent", "casework-ios/2.4.1")
	r.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, "192.0.2.1", ip)
	assert.Equal(t, "casework-ios/2.4.1", ua)
	assert.Equal(t, "req-42", requestID)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))

	t.Run("generated id when none is sent", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/cases", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		require.NotEmpty(t, requestID)
		assert.Equal(t, requestID, rec.Header().Get(HeaderRequestID))
	})
}

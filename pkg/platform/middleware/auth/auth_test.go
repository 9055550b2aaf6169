package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"casework/pkg/requestcontext"
)

type stubValidator map[string]*Claims

func (s stubValidator) ValidateToken(token string) (*Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func TestRequireActor(t *testing.T) {
	validator := stubValidator{
		"named":    {ActorID: "sup-1", Name: "Dana Supervisor"},
		"email":    {ActorID: "sup-2", Email: "jordan.lee@example.com"},
		"nameless": {ActorID: ""},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotID, gotName string
	handler := RequireActor(validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.ActorID(r.Context())
		gotName = requestcontext.ActorName(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		status   int
		actorID  string
		actorNam string
	}{
		{"missing header", "", http.StatusUnauthorized, "", ""},
		{"wrong scheme", "Basic named", http.StatusUnauthorized, "", ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "", ""},
		{"token without subject", "Bearer nameless", http.StatusUnauthorized, "", ""},
		{"named actor", "Bearer named", http.StatusNoContent, "sup-1", "Dana Supervisor"},
		{"name from email", "Bearer email", http.StatusNoContent, "sup-2", "Jordan Lee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotName = "", ""
			req := httptest.NewRequest(http.MethodGet, "/cases", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.actorID, gotID)
			assert.Equal(t, tt.actorNam, gotName)
		})
	}
}

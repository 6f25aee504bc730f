package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("s3cret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func serve(authHeader string) (*httptest.ResponseRecorder, string) {
	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	NewJWTAuthenticator(secret).Middleware(next).ServeHTTP(rec, req)
	return rec, subject
}

func TestMiddleware(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "operator"})
	wrongAlg := sign(t, jwt.SigningMethodHS512, secret, jwt.RegisteredClaims{Subject: "operator"})

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "valid token", header: "Bearer " + valid, code: http.StatusOK},
		{name: "missing header", code: http.StatusUnauthorized, body: "Authorization missing"},
		{name: "wrong scheme", header: "Token token=\"" + valid + "\"", code: http.StatusUnauthorized, body: "Malformed authorization header"},
		{name: "empty bearer", header: "Bearer ", code: http.StatusUnauthorized, body: "Malformed authorization header"},
		{name: "expired", header: "Bearer " + expired, code: http.StatusUnauthorized, body: "Invalid token"},
		{name: "wrong key", header: "Bearer " + wrongKey, code: http.StatusUnauthorized, body: "Invalid token"},
		{name: "wrong algorithm", header: "Bearer " + wrongAlg, code: http.StatusUnauthorized, body: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, subject := serve(tt.header)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "operator", subject)
				return
			}
			assert.Equal(t, tt.body, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

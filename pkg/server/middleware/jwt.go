package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

// JWTAuthenticator is middleware that validates HS256 bearer tokens
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Subject returns the authenticated token subject stored by Middleware.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(contextKey{}).(string)
	return sub, ok
}

// Middleware returns an HTTP middleware that validates JWT tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization missing")
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			unauthorized(w, "Malformed authorization header")
			return
		}

		var claims jwt.RegisteredClaims
		_, err := j.parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
			return j.secret, nil
		})
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="ingestion"`)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(msg))
}

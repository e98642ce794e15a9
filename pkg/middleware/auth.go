package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ClaimsKey holds the verified token claims in the gin context.
	ClaimsKey = "claims"
	// SubjectKey holds the token subject (the user id) in the gin context.
	SubjectKey = "sub"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

type subjectCtxKey struct{}

// WithSubject returns a copy of ctx carrying the authenticated subject.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectCtxKey{}, sub)
}

// SubjectFromContext returns the subject stored by the auth middlewares, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectCtxKey{}).(string)
	return sub
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		if authenticate(c, ver) {
			c.Next()
		}
	}
}

// OptionalAuthMiddleware identifies the caller when a Bearer token is sent and lets
// anonymous requests through. A token that is sent but invalid is still rejected.
func OptionalAuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if authenticate(c, ver) {
			c.Next()
		}
	}
}

// authenticate verifies the Authorization header and stores claims and subject on
// the gin context and the request context. On failure it aborts and returns false.
func authenticate(c *gin.Context, ver Verifier) bool {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		return false
	}

	verified, err := ver.Verify(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
		return false
	}

	var claims map[string]interface{}
	if err := verified.Claims(&claims); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
		return false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
		return false
	}

	c.Set(ClaimsKey, claims)
	c.Set(SubjectKey, sub)
	c.Request = c.Request.WithContext(WithSubject(c.Request.Context(), sub))
	return true
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	case "othertoken":
		return &fakeToken{data: map[string]interface{}{"sub": "user2"}}, nil
	case "nosub":
		return &fakeToken{data: map[string]interface{}{"email": "test@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serveWithAuth(header string) *httptest.ResponseRecorder {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		claims, _ := c.Get(ClaimsKey)
		c.JSON(http.StatusOK, gin.H{"claims": claims, "sub": c.GetString(SubjectKey)})
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serveWithAuth("").Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serveWithAuth("BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serveWithAuth("Bearer ").Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serveWithAuth("Bearer badtoken").Code)
}

func TestAuthMiddleware_TokenWithoutSubject(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serveWithAuth("Bearer nosub").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serveWithAuth("Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
	require.Equal(t, "user1", got["sub"])
}

func serveWithOptionalAuth(header string) *httptest.ResponseRecorder {
	g := gin.New()
	g.GET("/", OptionalAuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"sub":    c.GetString(SubjectKey),
			"ctxSub": SubjectFromContext(c.Request.Context()),
		})
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestOptionalAuthMiddleware(t *testing.T) {
	rw := serveWithOptionalAuth("")
	require.Equal(t, http.StatusOK, rw.Code)
	require.JSONEq(t, `{"sub":"","ctxSub":""}`, rw.Body.String())

	rw = serveWithOptionalAuth("Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	require.JSONEq(t, `{"sub":"user1","ctxSub":"user1"}`, rw.Body.String())

	require.Equal(t, http.StatusUnauthorized, serveWithOptionalAuth("Bearer badtoken").Code)
	require.Equal(t, http.StatusUnauthorized, serveWithOptionalAuth("Basic abc").Code)
}

func TestOptionalAuthFeedsRateLimiterSubject(t *testing.T) {
	g := gin.New()
	g.Use(OptionalAuthMiddleware(&fakeVerifier{}), RateLimitMiddleware(0.001, 1))
	g.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, req)
		return rw.Code
	}

	// same client IP throughout; each subject and the anonymous caller get their own bucket
	require.Equal(t, http.StatusOK, call("Bearer goodtoken"))
	require.Equal(t, http.StatusTooManyRequests, call("Bearer goodtoken"))
	require.Equal(t, http.StatusOK, call("Bearer othertoken"))
	require.Equal(t, http.StatusOK, call(""))
	require.Equal(t, http.StatusTooManyRequests, call(""))
}

func TestAuthMiddleware_SetsRequestContextSubject(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.String(http.StatusOK, SubjectFromContext(c.Request.Context()))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "user1", rw.Body.String())
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatter/chatter-backend/internal/database"
	"github.com/chatter/chatter-backend/internal/tokens"
	"github.com/chatter/chatter-backend/internal/users"
	"github.com/chatter/chatter-backend/pkg/logger"
	"github.com/chatter/chatter-backend/pkg/middleware"
)

// LoginRequest carries email/password credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	usersSvc  *users.Service
	secret    string
	accessTTL time.Duration
}

func NewAuthHandler(u *users.Service, secret string, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{usersSvc: u, secret: secret, accessTTL: accessTTL}
}

// Register mounts POST /auth/login and GET /api/v1/me.
func (h *AuthHandler) Register(r *gin.Engine) {
	r.POST("/auth/login", h.Login)
	r.GET("/api/v1/me", middleware.AuthMiddleware(tokens.NewVerifier(h.secret)), h.Me)
}

// Login verifies credentials and returns a signed access token
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Verify(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("login lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.secret, u, h.accessTTL)
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "expiresIn": int(h.accessTTL.Seconds()), "user": u})
}

// Me returns the user identified by the bearer token
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.usersSvc.FindOne(c.Request.Context(), c.GetString(middleware.SubjectKey))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"user": u})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrInvalidID):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
	default:
		logger.Errorf("me lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
	}
}

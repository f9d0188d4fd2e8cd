package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/devfolio/portfolio-api/internal/admin"
	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/sessions"
	"github.com/devfolio/portfolio-api/internal/tokens"
	"github.com/devfolio/portfolio-api/pkg/logger"
	"github.com/devfolio/portfolio-api/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest is the admin password login body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Authenticator is satisfied by *admin.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Admin, error)
	Profile(subject string) (models.Admin, bool)
}

// AuthHandler holds dependencies
type AuthHandler struct {
	admins     Authenticator
	sessions   *sessions.Service
	blacklist  *sessions.Blacklist
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(a Authenticator, s *sessions.Service, bl *sessions.Blacklist, secret string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{admins: a, sessions: s, blacklist: bl, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func (h *AuthHandler) issue(c *gin.Context, a models.Admin, refresh string) {
	access, err := tokens.GenerateAccessToken(h.secret, a, h.accessTTL)
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"expiresIn":    int(h.accessTTL.Seconds()),
		"user":         a,
	})
}

// Login checks the admin credentials and returns an access/refresh token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	a, err := h.admins.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, admin.ErrInvalidCredentials) {
			logger.Errorf("admin login error: %v", err)
		}
		logger.Warnw("admin login rejected", "username", req.Username, "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	rft, err := h.sessions.CreateSession(c.Request.Context(), a.Username, h.refreshTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	h.issue(c, a, rft)
}

// Refresh exchanges a refresh token for a new token pair; the old refresh
// token is invalidated.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken required"})
		return
	}
	sess, next, err := h.sessions.Rotate(c.Request.Context(), req.RefreshToken, h.refreshTTL)
	if errors.Is(err, sessions.ErrInvalidRefresh) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err != nil {
		logger.Errorf("refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	a, ok := h.admins.Profile(sess.Subject)
	if !ok {
		_ = h.sessions.DeleteRefresh(c.Request.Context(), next)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	h.issue(c, a, next)
}

// Logout invalidates the refresh token and blacklists the current access token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken required"})
		return
	}
	if at, ok := middleware.BearerToken(c.GetHeader("Authorization")); ok && h.blacklist != nil {
		if err := h.blacklist.Revoke(c.Request.Context(), at, tokens.ExpiresIn(at)); err != nil {
			logger.Errorf("failed to blacklist access token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
			return
		}
	}
	if err := h.sessions.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

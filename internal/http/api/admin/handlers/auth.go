package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/RelayStationHub/internal/config"
	"github.com/router-for-me/RelayStationHub/internal/security"
)

// AuthHandler issues admin session tokens.
type AuthHandler struct {
	jwtCfg       config.JWTConfig        // Signing secret and token lifetime.
	passwordHash string                  // Bcrypt hash of the admin password, empty when auth is off.
	throttle     *security.LoginThrottle // Per-IP attempt limiter.
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(jwtCfg config.JWTConfig, passwordHash string, throttle *security.LoginThrottle) *AuthHandler {
	return &AuthHandler{jwtCfg: jwtCfg, passwordHash: passwordHash, throttle: throttle}
}

type loginRequest struct {
	Password string `json:"password"` // Admin password.
}

// Login verifies the admin password and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	if strings.TrimSpace(h.passwordHash) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password auth is not configured"})
		return
	}
	if h.throttle != nil && !h.throttle.Allow(c.ClientIP(), time.Now()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.CheckPassword(h.passwordHash, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errSign := security.SignAdminToken(h.jwtCfg.Secret, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtCfg.Expiry / time.Second),
	})
}

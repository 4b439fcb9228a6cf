package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/router-for-me/RelayStationHub/internal/config"
	"github.com/router-for-me/RelayStationHub/internal/http/api/admin/handlers"
	"github.com/router-for-me/RelayStationHub/internal/security"
	"github.com/router-for-me/RelayStationHub/internal/service"
	"github.com/router-for-me/RelayStationHub/internal/store"
	"github.com/router-for-me/RelayStationHub/internal/switcher"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = time.Minute
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, stations *store.StationStore, svc *service.StationService, sw *switcher.Switcher, jwtCfg config.JWTConfig, hubCfg config.HubConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	versionHandler := handlers.NewVersionHandler()
	r.GET("/v0/version", versionHandler.GetVersion)

	adminGroup := r.Group("/v0/admin")

	throttle := security.NewLoginThrottle(loginAttemptLimit, loginAttemptWindow)
	authHandler := handlers.NewAuthHandler(jwtCfg, hubCfg.AdminPasswordHash, throttle)
	adminGroup.POST("/login", authHandler.Login)

	if strings.TrimSpace(hubCfg.AdminPasswordHash) == "" {
		log.Warn("admin: no password hash configured, API is open")
	}

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(jwtCfg, hubCfg.AdminPasswordHash))

	stationHandler := handlers.NewStationHandler(stations)
	authed.POST("/stations", stationHandler.Create)
	authed.GET("/stations", stationHandler.List)
	authed.GET("/stations/export", stationHandler.Export)
	authed.POST("/stations/import", stationHandler.Import)
	authed.GET("/stations/:id", stationHandler.Get)
	authed.PUT("/stations/:id", stationHandler.Update)
	authed.DELETE("/stations/:id", stationHandler.Delete)

	opsHandler := handlers.NewStationOpsHandler(svc)
	authed.GET("/stations/:id/info", opsHandler.Info)
	authed.GET("/stations/:id/user", opsHandler.User)
	authed.GET("/stations/:id/logs", opsHandler.Logs)
	authed.POST("/stations/:id/test", opsHandler.Test)
	authed.GET("/stations/:id/endpoints", opsHandler.Endpoints)
	authed.GET("/stations/:id/groups", opsHandler.Groups)

	tokenHandler := handlers.NewTokenHandler(svc)
	authed.GET("/stations/:id/tokens", tokenHandler.List)
	authed.POST("/stations/:id/tokens", tokenHandler.Create)
	authed.PUT("/stations/:id/tokens/:token_id", tokenHandler.Update)
	authed.DELETE("/stations/:id/tokens/:token_id", tokenHandler.Delete)
	authed.POST("/stations/:id/tokens/:token_id/enable", tokenHandler.Enable)
	authed.POST("/stations/:id/tokens/:token_id/disable", tokenHandler.Disable)

	configHandler := handlers.NewStationConfigHandler(stations)
	authed.GET("/stations/:id/config", configHandler.Get)
	authed.PUT("/stations/:id/config", configHandler.Save)

	usageHandler := handlers.NewUsageHandler(stations, sw)
	authed.GET("/usage", usageHandler.List)
	authed.POST("/usage", usageHandler.Record)

	switchHandler := handlers.NewSwitchHandler(sw)
	authed.POST("/switch", switchHandler.Switch)
	authed.POST("/switch/clear", switchHandler.Clear)
	authed.GET("/switch/current", switchHandler.Current)

	profileHandler := handlers.NewProfileHandler(sw)
	authed.POST("/profiles", profileHandler.Create)
	authed.GET("/profiles", profileHandler.List)
	authed.GET("/profiles/:id", profileHandler.Get)
	authed.PUT("/profiles/:id", profileHandler.Update)
	authed.DELETE("/profiles/:id", profileHandler.Delete)
	authed.POST("/profiles/:id/apply", profileHandler.Apply)
}

// adminAuthMiddleware validates admin JWTs. With no password hash
// configured there is nothing to log in against, so requests pass through.
func adminAuthMiddleware(jwtCfg config.JWTConfig, passwordHash string) gin.HandlerFunc {
	open := strings.TrimSpace(passwordHash) == ""
	return func(c *gin.Context) {
		if open {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		if _, errJWT := security.ParseAdminToken(jwtCfg.Secret, token); errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/RelayStationHub/internal/config"
	"github.com/router-for-me/RelayStationHub/internal/db"
	adminapi "github.com/router-for-me/RelayStationHub/internal/http/api/admin"
	"github.com/router-for-me/RelayStationHub/internal/service"
	"github.com/router-for-me/RelayStationHub/internal/sessions"
	"github.com/router-for-me/RelayStationHub/internal/store"
	"github.com/router-for-me/RelayStationHub/internal/switcher"
)

const shutdownTimeout = 5 * time.Second

// RunServer boots the station hub: database, stores, switcher and the
// admin HTTP surface. It blocks until ctx is cancelled or the listener
// fails.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	hubCfg, _ := config.LoadHubConfig(configPath)
	serverCfg := config.LoadServerConfig(configPath)
	setupLogging(configPath, serverCfg)

	stations := store.NewStationStore(conn)
	svc := service.NewStationService(stations)

	var supervisor sessions.Supervisor
	if hubCfg.SupervisorURL != "" {
		supervisor = sessions.NewClient(hubCfg.SupervisorURL)
	}
	sw := switcher.New(
		switcher.NewSettingsFile(hubCfg.SettingsPath),
		switcher.NewProfileStore(hubCfg.ProvidersPath),
		supervisor,
	)

	if serverCfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	adminapi.RegisterAdminRoutes(engine, conn, stations, svc, sw, jwtCfg, hubCfg)

	port := serverCfg.Port
	if port <= 0 {
		port = defaultPort
	}
	if port <= 0 {
		port = 8418
	}
	addr := fmt.Sprintf("%s:%d", serverCfg.Host, port)

	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting station hub on %s with config=%s", addr, configPath)
	var errListen error
	if serverCfg.TLS.Enable {
		errListen = srv.ListenAndServeTLS(serverCfg.TLS.Cert, serverCfg.TLS.Key)
	} else {
		errListen = srv.ListenAndServe()
	}
	if errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}

// setupLogging applies the configured log level and destination.
func setupLogging(configPath string, serverCfg config.ServerConfig) {
	if serverCfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if !serverCfg.LoggingToFile {
		return
	}
	logPath := filepath.Join(filepath.Dir(configPath), "stationhub.log")
	file, errOpen := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if errOpen != nil {
		log.WithError(errOpen).Warn("open log file failed, keeping stderr")
		return
	}
	log.SetOutput(file)
}

// corsMiddleware enables permissive CORS so a local GUI shell can talk to
// the API from any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package main

// Floodwatch server - crowd-reporting flood API entry point

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/config"
	"github.com/apimgr/floodwatch/src/database"
	"github.com/apimgr/floodwatch/src/handlers"
	"github.com/apimgr/floodwatch/src/middleware"
	"github.com/apimgr/floodwatch/src/models"
	"github.com/apimgr/floodwatch/src/services"
	"github.com/apimgr/floodwatch/src/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	logger.WithField("version", GetVersionString()).Infof("%s starting", cfg.AppName)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()
	logger.WithField("driver", db.Driver()).Info("database connected")

	cache := services.NewResponseCache(cfg.Cache, logger)

	alertModel := models.NewAlertModel(db, logger)
	archiveModel := models.NewArchiveModel(db, logger)

	alerts := handlers.NewAlertsHandler(cfg, alertModel, cache, logger)
	archive := handlers.NewArchiveHandler(cfg, archiveModel, cache, logger)

	r := newRouter(cfg, logger)
	registerRoutes(r, db, alerts, archive)

	srv := &http.Server{
		Addr:              cfg.ListenAddress + ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown incomplete")
	}
}

// newRouter builds the gin engine with the middleware chain
func newRouter(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	switch cfg.Mode {
	case "development", "dev":
		gin.SetMode(gin.DebugMode)
	case "test", "testing":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLogger(logger))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Metrics())
	r.Use(middleware.BodySizeLimit(cfg.BodyLimit))
	r.Use(middleware.RateLimit(middleware.DefaultRateLimit, middleware.DefaultRateWindow))

	if cfg.CORS {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders: []string{"Content-Length", "Link"},
			MaxAge:        24 * time.Hour,
		}))
	}

	return r
}

// registerRoutes wires the API surface
func registerRoutes(r *gin.Engine, db *database.DB, alerts *handlers.AlertsHandler, archive *handlers.ArchiveHandler) {
	r.GET("/alerts", alerts.Get)
	r.POST("/alerts", alerts.Post)
	r.PUT("/alerts", alerts.Put)

	r.GET("/reports/archive", archive.Get)

	r.GET("/healthz", handlers.Health(db, Version))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

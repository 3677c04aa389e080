// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	logger      *logrus.Entry
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	return &Server{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger.WithField("component", "http"),
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s.gin = gin.New()
	s.startedAt = time.Now()

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithFields(logrus.Fields{
		"port":        s.config.Server.Port,
		"environment": s.config.App.Environment,
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.Logger(s.config))
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config, s.redisClient.GetClient()))
	s.gin.Use(middleware.RequestSizeLimit(1 << 20))
	s.gin.Use(middleware.Timeout(30 * time.Second))
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.db, s.redisClient, s.config)

	if s.config.IsDevelopment() {
		s.gin.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message":     s.config.App.Name,
				"version":     s.config.App.Version,
				"environment": s.config.App.Environment,
				"health":      "/health",
				"endpoints": gin.H{
					"promotions": "/api/v1/promotions",
					"checkout":   "/api/v1/checkout",
					"orders":     "/api/v1/orders",
					"webhooks":   "/api/v1/webhooks",
				},
			})
		})
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database connection error",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database ping failed",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := s.redisClient.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "redis ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/config"
	"jbossmon/internal/metrics"
	"jbossmon/internal/monitor"
	"jbossmon/internal/reports"
	"jbossmon/internal/store"
)

type Server struct {
	config  *config.Config
	store   store.Store
	agg     *monitor.Aggregator
	engine  *reports.Engine
	metrics *metrics.Collector
	router  *gin.Engine
	server  *http.Server

	wsMu      sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(cfg *config.Config, s store.Store, agg *monitor.Aggregator, engine *reports.Engine, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		config:    cfg,
		store:     s,
		agg:       agg,
		engine:    engine,
		metrics:   metricsCollector,
		router:    router,
		wsClients: make(map[*WSClient]bool),
	}

	server.setupRoutes()

	// Push a status update to dashboard clients after every publish.
	agg.SetNotify(server.notifyStatusUpdate)

	return server
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	go s.updateMetricsRoutine(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/environments", s.getEnvironments)

		api.GET("/hosts/:environment", s.getHosts)
		api.GET("/hosts/:environment/:id", s.getHost)
		api.POST("/hosts/:environment", s.createHost)
		api.POST("/hosts/:environment/bulk", s.createHostsBulk)
		api.DELETE("/hosts/:environment/:id", s.deleteHost)

		api.GET("/status/:environment", s.getStatus)
		api.POST("/status/:environment/check", s.checkEnvironment)
		api.POST("/status/:environment/check/:id", s.checkHost)

		api.GET("/credentials/:environment", s.getCredentials)
		api.PUT("/credentials/:environment", s.storeCredentials)

		api.GET("/reports", s.getReports)
		api.GET("/reports/:id", s.getReport)
		api.POST("/reports/generate/:environment", s.generateReport)
		api.GET("/reports/:id/download", s.downloadReport)
		api.DELETE("/reports/:id", s.deleteReport)

		api.GET("/comparisons", s.getComparisons)
		api.GET("/comparisons/:id", s.getComparison)
		api.POST("/comparisons", s.createComparison)
		api.GET("/comparisons/:id/download", s.downloadComparison)
		api.DELETE("/comparisons/:id", s.deleteComparison)

		api.GET("/stats", s.getStats)
		api.POST("/admin/compact", s.compactDatabase)
		api.POST("/admin/cleanup", s.cleanupReports)
		api.GET("/health", s.healthCheck)
		api.GET("/version", s.getBuildInfo)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   Version,
	})
}

func (s *Server) getEnvironments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": store.Environments()})
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.metrics.UpdateSystemMetrics(ctx); err != nil {
				logrus.WithError(err).Error("Failed to update system metrics")
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

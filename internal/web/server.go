// internal/web/server.go
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"pulse/internal/config"
	"pulse/internal/domain"
	"pulse/internal/metrics"
	"pulse/internal/monitoring"
	"pulse/internal/notifications"
	"pulse/internal/storage"
)

// Maintainer exposes housekeeping on the local database. *storage.BoltStore satisfies it.
type Maintainer interface {
	Stats() (*storage.Stats, error)
	Compact() error
}

// Server is the local agent's HTTP surface: it accepts pushes, serves the
// inbox and the latest dashboard, and streams both over a websocket.
type Server struct {
	config  *config.Config
	inbox   *notifications.Service
	poller  *monitoring.Poller
	store   Maintainer
	metrics *metrics.Collector
	router  *gin.Engine
	hub     *Hub
	server  *http.Server
	started time.Time
}

func NewServer(cfg *config.Config, inbox *notifications.Service, poller *monitoring.Poller, store Maintainer, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	var gauge ConnectionGauge
	if metricsCollector != nil {
		gauge = metricsCollector
	}

	server := &Server{
		config:  cfg,
		inbox:   inbox,
		poller:  poller,
		store:   store,
		metrics: metricsCollector,
		router:  router,
		hub:     NewHub(gauge),
		started: time.Now(),
	}

	server.setupRoutes()
	return server
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listen address and serves in the background. A bind
// failure is returned rather than logged.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Agent.Listen)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.Agent.ReadTimeout,
		WriteTimeout: s.config.Agent.WriteTimeout,
	}

	logrus.WithField("listen", listener.Addr().String()).Info("Starting agent server")

	s.startForwarding(ctx)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Agent server stopped")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/push", s.receivePush)

		api.GET("/notifications", s.getNotifications)
		api.POST("/notifications/test", s.createTestNotification)
		api.POST("/notifications/read-all", s.markAllNotificationsRead)
		api.POST("/notifications/:id/read", s.markNotificationRead)
		api.DELETE("/notifications/:id", s.deleteNotification)
		api.DELETE("/notifications", s.clearNotifications)

		api.GET("/dashboard", s.getDashboard)

		api.GET("/storage/stats", s.getStorageStats)
		api.POST("/storage/compact", s.compactStorage)

		api.GET("/health", s.healthCheck)
		api.GET("/build", s.getBuildInfo)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"clients":   s.hub.Count(),
	}
	if err := s.poller.LastError(); err != nil {
		resp["status"] = "degraded"
		resp["last_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// startForwarding subscribes to the inbox and the poller, then relays new
// notifications and dashboard snapshots to websocket clients until ctx ends.
func (s *Server) startForwarding(ctx context.Context) {
	notes, cancelNotes := s.inbox.Subscribe()
	dashboards, cancelDash := s.poller.Subscribe()
	go func() {
		defer cancelNotes()
		defer cancelDash()
		s.forward(ctx, notes, dashboards)
	}()
}

func (s *Server) forward(ctx context.Context, notes <-chan domain.AppNotification, dashboards <-chan domain.DashboardData) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notes:
			if !ok {
				return
			}
			s.hub.Broadcast(WSMessage{Type: MessageNotification, Data: n})
		case dash, ok := <-dashboards:
			if !ok {
				return
			}
			s.hub.Broadcast(WSMessage{Type: MessageDashboard, Data: newDashboardView(dash)})
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

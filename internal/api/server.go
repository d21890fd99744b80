// Package api exposes the engine over HTTP: status, positions, trades,
// metrics, a websocket event stream and JWT-protected control actions.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"strategy-core/internal/balance"
	"strategy-core/internal/engine"
	"strategy-core/internal/events"
	"strategy-core/internal/exec"
	"strategy-core/internal/monitor"
	"strategy-core/pkg/db"
)

// Server wires HTTP endpoints around the engine and the event bus.
type Server struct {
	Router      *gin.Engine
	Bus         *events.Bus
	DB          *db.Database
	Engine      *engine.Engine
	Balance     *balance.Manager
	Exec        *exec.Paper
	Metrics     *monitor.SystemMetrics
	JWTSecret   string
	OperatorKey string
	Meta        SystemMeta
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	Profile string
	Symbols []string
	Version string
}

func NewServer(bus *events.Bus, database *db.Database, eng *engine.Engine, bal *balance.Manager, paper *exec.Paper, metrics *monitor.SystemMetrics, meta SystemMeta, jwtSecret, operatorKey string) *Server {
	r := gin.New()

	// Middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:      r,
		Bus:         bus,
		DB:          database,
		Engine:      eng,
		Balance:     bal,
		Exec:        paper,
		Metrics:     metrics,
		JWTSecret:   jwtSecret,
		OperatorKey: operatorKey,
		Meta:        meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/metrics", s.getMetrics)

		api.POST("/auth/token", s.issueToken)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/positions", s.getPositions)
			protected.GET("/balance", s.getBalance)
			protected.GET("/trades", s.getTrades)
			protected.GET("/fills", s.getFills)
			protected.GET("/risk", s.getRiskMetrics)

			protected.POST("/control/pause", s.pauseEngine)
			protected.POST("/control/resume", s.resumeEngine)
		}
	}
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

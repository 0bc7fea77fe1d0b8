// Package server exposes the session metadata and lap table endpoints over
// HTTP. All data acquisition goes through the telemetry provider; the
// handlers only validate input, project columns and normalize units.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/apexcompute/apex-compute/config"
	"github.com/apexcompute/apex-compute/internal/fastf1"
)

// Server handles HTTP requests for the session data API
type Server struct {
	cfg      *config.Config
	provider fastf1.Provider
	router   *gin.Engine
}

// New creates a new HTTP server instance backed by the given provider
func New(cfg *config.Config, provider fastf1.Provider) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		cfg:      cfg,
		provider: provider,
	}

	server.setupRoutes(router)
	server.router = router
	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.Use(requestID())

	// Health check endpoint
	router.GET("/health", s.health)

	session := router.Group("/session")
	{
		session.POST("/info", s.sessionInfo)
		session.POST("/laps", s.sessionLaps)
	}
}

// requestID assigns each request an identifier, echoed in the response
// headers and attached to handler logs.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

const requestIDKey = "requestID"

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	return s.router.Run(":" + port)
}

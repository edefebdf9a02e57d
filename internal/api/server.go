// Package api exposes verification passes over a local HTTP API and
// serves the artifacts of recorded runs.
package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pittsburgh/internal/buildinfo"
	"pittsburgh/internal/history"
	"pittsburgh/internal/scenario"
	"pittsburgh/internal/verifier"
)

// RunFunc executes one verification pass for the server. The server
// serializes calls; implementations own the browser lifecycle.
type RunFunc func(sc scenario.Scenario) (verifier.Result, error)

// Config holds the server wiring.
type Config struct {
	Addr      string
	Debug     bool
	Workspace string
	Store     *history.Store // optional run index
	Run       RunFunc
}

// Server is the HTTP front of the verifier.
type Server struct {
	engine    *gin.Engine
	server    *http.Server
	run       RunFunc
	store     *history.Store
	workspace string

	// one browser at a time
	mu sync.Mutex
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:    engine,
		run:       cfg.Run,
		store:     cfg.Store,
		workspace: cfg.Workspace,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.POST("/verifications", s.handleVerify)
		v1.GET("/verifications", s.handleList)
		v1.GET("/verifications/:id", s.handleGet)
	}

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "themecheck",
			"version": buildinfo.Version,
			"endpoints": []string{
				"POST /v1/verifications",
				"GET /v1/verifications",
				"GET /v1/verifications/:id",
			},
		})
	})

	if s.workspace != "" {
		s.engine.Static("/runs", filepath.Join(s.workspace, "runs"))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	log.Infof("Serving verification API on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("Stopping API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// corsMiddleware adds permissive CORS headers for local tooling.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

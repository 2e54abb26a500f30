// file: internal/server/server.go
// version: 2.1.0
// guid: c8b3ff3a-add8-45c1-a9ba-cba3a70a7284

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/logging"
	"github.com/jdfalk/cpe-resolver/internal/metrics"
	"github.com/jdfalk/cpe-resolver/internal/models"
	"github.com/jdfalk/cpe-resolver/internal/server/middleware"
)

const serviceName = "cpe-resolver"

// BatchResolver resolves a batch of aliases under one run id
type BatchResolver interface {
	ResolveBatch(ctx context.Context, aliases []string, progress func(done, total int)) (string, []models.OutputRecord)
}

// IndexInvalidator drops a cached vector index so the next search reloads it
type IndexInvalidator interface {
	Invalidate()
}

// Deps are the services behind the HTTP API. Nil members disable their routes
// with 503 responses.
type Deps struct {
	Resolver BatchResolver
	Runs     database.ResultStore
	Catalog  database.CatalogStore
	// Index, when set, is invalidated after an import adds catalog rows
	Index IndexInvalidator
	// Mode names the retrieval mode reported by the health check
	Mode string
}

// Config holds server configuration
type Config struct {
	Host              string
	Port              int
	RequestsPerMinute int
	MaxBatchSize      int
	APIToken          string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	JSONBodyLimit     int64
	UploadBodyLimit   int64
}

func (c *Config) applyDefaults() {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 500
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// a batch holds the connection until every alias resolves
		c.WriteTimeout = 30 * time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.JSONBodyLimit <= 0 {
		c.JSONBodyLimit = 4 << 20
	}
	if c.UploadBodyLimit <= 0 {
		c.UploadBodyLimit = 512 << 20
	}
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       Deps
	cfg        Config
	started    time.Time
}

// NewServer creates a new server instance
func NewServer(deps Deps, cfg Config) *Server {
	cfg.applyDefaults()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(requestLogging())
	router.Use(middleware.MaxRequestBodySize(middleware.BodyLimits{JSON: cfg.JSONBodyLimit, CatalogImport: cfg.UploadBodyLimit}))
	router.Use(middleware.RequireToken(cfg.APIToken))

	// Register metrics (idempotent)
	metrics.Register()

	s := &Server{
		router:  router,
		deps:    deps,
		cfg:     cfg,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:           net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:        s.router,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[INFO] Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[INFO] Server exited")
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint (standard path)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	api.GET("/health", s.healthCheck)

	limited := api.Group("")
	if s.cfg.RequestsPerMinute > 0 {
		burst := max(1, s.cfg.RequestsPerMinute/10)
		limited.Use(middleware.NewIPRateLimiter(s.cfg.RequestsPerMinute, burst).Middleware())
	}
	{
		limited.POST("/resolve", s.resolve)
		limited.GET("/runs", s.listRuns)
		limited.GET("/runs/:id", s.getRun)
		limited.POST("/catalog/import", s.importCatalog)
	}
}

// requestLogging logs each request through the service logger and counts it by route
func requestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		rl := logging.NewRequestLogger(middleware.GetRequestID(c), c.ClientIP(),
			c.Request.UserAgent(), c.Request.Method, c.Request.URL.Path)
		rl.LogRequest()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.IncHTTPRequest(route, c.Writer.Status())
		rl.LogResponse(c.Writer.Status(), c.Writer.Size())
	}
}

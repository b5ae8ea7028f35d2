// Package httpapi exposes the read side of the compatibility engine over
// HTTP using gin.
package httpapi

import (
	"aquasync/internal/adapters/export"
	"aquasync/internal/core"
	"aquasync/internal/enrich"
	"aquasync/pkg/domain"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the subset of *core.Service the API reads from.
type Service interface {
	Tankmates(ctx context.Context, name string) (domain.TankmateProfile, error)
	Compatibility(ctx context.Context, a, b string) (domain.Verdict, error)
	CompatibilityInTank(ctx context.Context, a, b string, stocking map[string]int) (domain.Verdict, error)
	Plan(ctx context.Context, tank domain.Tank) (domain.Plan, error)
}

// Snapshots lists exported runs; *export.Exporter satisfies it.
type Snapshots interface {
	Runs(ctx context.Context) ([]export.Manifest, error)
}

// Server holds the handler dependencies.
type Server struct {
	svc       Service
	enricher  *enrich.Enricher
	snapshots Snapshots
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithEnricher enables generative explanations; without it the explain
// endpoint returns local text.
func WithEnricher(e *enrich.Enricher) Option {
	return func(s *Server) { s.enricher = e }
}

// WithSnapshots enables GET /api/v1/snapshots.
func WithSnapshots(sn Snapshots) Option {
	return func(s *Server) { s.snapshots = sn }
}

// WithGatherer serves the registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Server over svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/species/:name/tankmates", s.handleTankmates)
	v1.GET("/compatibility", s.handleCompatibility)
	v1.GET("/compatibility/explain", s.handleExplain)
	v1.POST("/plans", s.handlePlan)
	if s.snapshots != nil {
		v1.GET("/snapshots", s.handleSnapshots)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) handleTankmates(c *gin.Context) {
	profile, err := s.svc.Tankmates(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func pairParams(c *gin.Context) (a, b string, ok bool) {
	a, b = strings.TrimSpace(c.Query("a")), strings.TrimSpace(c.Query("b"))
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters a and b are required"})
		return "", "", false
	}
	return a, b, true
}

func (s *Server) verdict(c *gin.Context) (domain.Verdict, bool) {
	a, b, ok := pairParams(c)
	if !ok {
		return domain.Verdict{}, false
	}
	var (
		v   domain.Verdict
		err error
	)
	if stock := c.QueryArray("stock"); len(stock) > 0 {
		stocking, perr := domain.ParseStocking(stock)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return domain.Verdict{}, false
		}
		v, err = s.svc.CompatibilityInTank(c.Request.Context(), a, b, stocking)
	} else {
		v, err = s.svc.Compatibility(c.Request.Context(), a, b)
	}
	if err != nil {
		s.fail(c, err)
		return domain.Verdict{}, false
	}
	return v, true
}

func (s *Server) handleCompatibility(c *gin.Context) {
	if v, ok := s.verdict(c); ok {
		c.JSON(http.StatusOK, v)
	}
}

func (s *Server) handleExplain(c *gin.Context) {
	v, ok := s.verdict(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.enricher.Explain(c.Request.Context(), v))
}

func (s *Server) handlePlan(c *gin.Context) {
	var tank domain.Tank
	if err := c.ShouldBindJSON(&tank); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tank body: " + err.Error()})
		return
	}
	plan, err := s.svc.Plan(c.Request.Context(), tank)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleSnapshots(c *gin.Context) {
	runs, err := s.snapshots.Runs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if runs == nil {
		runs = []export.Manifest{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "class", core.Classify(err).String(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "class": core.Classify(err).String()})
}

func statusFor(err error) int {
	var notFound core.ErrNotFound
	var cfgErr *core.ConfigError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTank):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &cfgErr) && cfgErr.Op == "compatibility":
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Package server exposes the counter over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cell-counter/internal/api"
	"cell-counter/internal/config"
	"cell-counter/internal/counter"
	"cell-counter/internal/monitor"
	"cell-counter/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Counter is the part of counter.Counter the server needs.
type Counter interface {
	Count(img gocv.Mat) (*counter.Result, error)
}

// Server owns the HTTP engine and the worker pool behind it.
type Server struct {
	cfg     config.Server
	counter Counter
	metrics *monitor.Metrics
	log     *zap.Logger

	engine *gin.Engine
	jobs   chan job
	wg     sync.WaitGroup
	once   sync.Once
}

// New builds a server. Call Start before serving and Close after.
func New(cfg config.Server, c Counter, m *monitor.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = monitor.New()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}

	s := &Server{
		cfg:     cfg,
		counter: c,
		metrics: m,
		log:     log,
		jobs:    make(chan job, cfg.QueueSize),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET(api.PingPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, api.PingResponse{Message: "pong", Version: version.String()})
	})
	r.POST(api.CountPath, s.handleCount)
	r.GET(api.MetricsPath, gin.WrapH(s.metrics.Handler()))
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Start launches the workers.
func (s *Server) Start() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.runWorker(i)
	}
	s.log.Info("workers started", zap.Int("workers", s.cfg.Workers), zap.Int("queue", s.cfg.QueueSize))
}

// Close stops accepting jobs and waits for the workers to drain the queue.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.jobs)
		s.wg.Wait()
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("address", s.cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, failed := <-errc:
		if failed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Package server exposes the scheduling engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshharrison/siteplan/internal/logger"
	"github.com/joshharrison/siteplan/internal/schedule"
)

// Opts holds configuration for the HTTP server.
type Opts struct {
	Engine      *schedule.Engine
	Port        int
	MaxUploadMB int
	// MetricsPath is left unrouted when empty or when Gatherer is nil.
	MetricsPath string
	Gatherer    prometheus.Gatherer
	Log         logger.Logger
	Out         io.Writer
	Now         func() time.Time
}

func (o *Opts) setDefaults() {
	if o.Port <= 0 {
		o.Port = 8080
	}
	if o.MaxUploadMB <= 0 {
		o.MaxUploadMB = 32
	}
	if o.Log == nil {
		o.Log = logger.NopLogger{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// server keeps the last successful response for GET /schedule/latest.
// Every POST computes on its own inputs; nothing else is shared.
type server struct {
	opts Opts

	mu     sync.RWMutex
	latest *scheduleResponse
}

// NewRouter builds the gin router without starting a listener.
func NewRouter(opts Opts) (*gin.Engine, error) {
	if opts.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	opts.setDefaults()
	srv := &server{opts: opts}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = int64(opts.MaxUploadMB) << 20

	router.GET("/healthz", handleHealth)
	router.POST("/schedule", srv.handleSchedule)
	router.GET("/schedule/latest", srv.handleLatest)
	if opts.MetricsPath != "" && opts.Gatherer != nil {
		router.GET(opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return router, nil
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	opts.setDefaults()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "siteplan listening on http://localhost:%d\n", opts.Port)
	}
	opts.Log.Infof("listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

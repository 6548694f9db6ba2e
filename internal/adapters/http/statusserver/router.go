// Package statusserver exposes a local operational endpoint for the agent.
package statusserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akosarev/hostflux/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// NewRouter builds the status router: a liveness probe and a scheduler
// progress snapshot.
func NewRouter(src ports.StatsSource, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), ZapLogger(logger))
	r.RedirectTrailingSlash = false

	h := &Handler{src: src}
	r.GET("/healthz", h.Health)
	r.GET("/status", h.Status)

	return r
}

// Serve runs the status endpoint on ln until ctx is cancelled, then shuts the
// server down gracefully.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

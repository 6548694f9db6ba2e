package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/akosarev/hostflux/internal/adapters/http/statusserver"
	"github.com/akosarev/hostflux/internal/adapters/inventory/hostinv"
	"github.com/akosarev/hostflux/internal/adapters/store/influxhttp"
	"github.com/akosarev/hostflux/internal/adapters/store/influxwrite"
	"github.com/akosarev/hostflux/internal/config"
	"github.com/akosarev/hostflux/internal/misc"
	"github.com/akosarev/hostflux/internal/services/scheduler"
	"github.com/akosarev/hostflux/internal/services/session"
	"github.com/akosarev/hostflux/internal/services/shape"
	"github.com/akosarev/hostflux/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

const logoutTimeout = 5 * time.Second

func main() {
	util.PrintBuildInfo(buildVersion, buildDate, buildCommit)

	cfg, err := config.LoadAgentConfig(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Register the shutdown signal before the scheduler can fire, so an
	// early signal still runs the flush/logout sequence.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := influxhttp.New(cfg.Endpoint, nil)
	if err != nil {
		logger.Fatal("store client init failed", zap.Error(err))
	}
	sess := session.New(store, session.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
		Org:      cfg.Org,
		Bucket:   cfg.Bucket,
	}, logger)

	connect := func() error { return sess.Connect(ctx) }
	if err := misc.Retry(ctx, misc.DefaultBackoff, influxhttp.IsRetryable, connect); err != nil {
		logger.Fatal("store not reachable",
			zap.String("endpoint", cfg.Endpoint), zap.Error(err))
	}
	if err := sess.Bootstrap(ctx); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	token, err := sess.Authorize(ctx)
	if err != nil {
		logger.Fatal("authorize failed", zap.Error(err))
	}

	host, _ := os.Hostname()
	buf := influxwrite.New(cfg.Endpoint, token, cfg.Org, cfg.Bucket, map[string]string{
		"host":  host,
		"agent": "hostflux",
	}, logger)

	sched := scheduler.New(hostinv.New(), shape.New(cfg.VendorFilter), buf, cfg.PollInterval, logger)

	if cfg.StatusAddress != "" {
		ln, err := net.Listen("tcp", cfg.StatusAddress)
		if err != nil {
			logger.Fatal("status listener failed",
				zap.String("address", cfg.StatusAddress), zap.Error(err))
		}
		router := statusserver.NewRouter(sched, logger)
		go func() {
			if err := statusserver.Serve(ctx, ln, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("status server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("agent started",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("org", cfg.Org),
		zap.String("bucket", cfg.Bucket),
		zap.Duration("poll", cfg.PollInterval))

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler stopped", zap.Error(err))
	}

	// Flush before logout; buffered points are lost otherwise.
	if !buf.Close() {
		logger.Warn("write buffer did not drain cleanly")
	}
	logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	if err := sess.Logout(logoutCtx); err != nil {
		logger.Warn("logout failed", zap.Error(err))
	}
	logger.Info("agent stopped")
}

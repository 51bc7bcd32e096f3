package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/weblink/signaling/internal/config"
	"github.com/weblink/signaling/internal/httpserver"
	"github.com/weblink/signaling/internal/metrics"
	"github.com/weblink/signaling/internal/signaling"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	m := metrics.New()
	registry := signaling.NewRegistry(cfg, logger, m)

	ws, err := signaling.NewServer(cfg, registry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure signaling")
	}

	srv := httpserver.New(cfg, logger, registry, ws, m, httpserver.BuildInfo{
		Commit:    buildCommit,
		BuildTime: buildTime,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to listen")
	}

	logger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Str("mode", string(cfg.Mode)).
		Str("auth_mode", string(cfg.AuthMode)).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("starting weblink-signaling")

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	registry.Close()
	logger.Info().Msg("server exited")
}

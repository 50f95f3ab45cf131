package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/app"
	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/httpserver"
	"github.com/chadiek/jarvis/internal/logging"
)

func main() {
	boot, err := logging.New("info", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(os.Args[1:], boot)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		boot.Fatal("invalid configuration", zap.Error(err))
	}
	log, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		boot.Fatal("invalid log level", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	a, err := app.Build(cfg, app.ModeServer, log)
	if err != nil {
		log.Fatal("build assistant", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close assistant", zap.Error(err))
		}
	}()

	srv := httpserver.New(a.Assistant, httpserver.DefaultOptions(), logging.Component(log, "http"))
	app.PrintBanner(os.Stdout, "http server")

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTPAddress))
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			return
		}
	case sig := <-sigChan:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
}

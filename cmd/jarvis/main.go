package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/agent"
	"github.com/chadiek/jarvis/internal/app"
	"github.com/chadiek/jarvis/internal/cli"
	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/logging"
	"github.com/chadiek/jarvis/internal/tts"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	boot, err := logging.New("warn", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.Load(args, boot)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		boot.Error("invalid configuration", zap.Error(err))
		return 2
	}
	log, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		boot.Error("invalid log level", zap.Error(err))
		return 2
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ListVoices {
		voices, err := tts.ListVoices(ctx)
		if err != nil {
			log.Error("list voices", zap.Error(err))
			return 1
		}
		for _, v := range voices {
			fmt.Println(v)
		}
		return 0
	}

	a, err := app.Build(cfg, app.ModeCLI, log)
	if err != nil {
		log.Error("build assistant", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	if cfg.TestVoice {
		if err := a.Speaker.Speak(ctx, agent.Greeting); err != nil {
			log.Error("test voice", zap.Error(err))
			return 1
		}
		return 0
	}

	app.PrintBanner(os.Stdout, "interactive console")
	err = cli.New(a.Assistant, os.Stdin, os.Stdout, cfg.PTT, logging.Component(log, "cli")).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("console", zap.Error(err))
		return 1
	}
	return 0
}

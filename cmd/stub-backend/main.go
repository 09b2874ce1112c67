package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/layer-report-client/internal/core/config"
	"github.com/mohammed-shakir/layer-report-client/internal/core/server"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/stubbackend"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()
	addr := flag.String("addr", cfg.StubAddr, "listen address")
	flag.Parse()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "stub-backend",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("starting stub backend", "addr", *addr, "version", Version)
	if err := server.Run(ctx, *addr, appLog, stubbackend.NewDemo().Handler(appLog)); err != nil {
		appLog.Error("stub backend stopped", "err", err)
		return 1
	}
	return 0
}

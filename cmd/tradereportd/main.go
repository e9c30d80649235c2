package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"trade-report/internal/app"
	"trade-report/internal/server"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := app.Bootstrap(ctx, *configPath)
	must(err)
	defer env.Shutdown(context.Background())

	zl, err := zap.NewProduction()
	must(err)
	defer zl.Sync()

	src, err := app.NewSource(ctx, env.Config)
	if err != nil {
		// The daemon still serves uploads without a broker.
		zl.Warn("Broker source unavailable", zap.Error(err))
	}

	listen := *addr
	if listen == "" {
		listen = env.Config.Server.Addr
	}

	srv := server.New(server.Deps{Env: env, Source: src, Log: zl})
	if err := srv.Run(ctx, listen); err != nil {
		zl.Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
}

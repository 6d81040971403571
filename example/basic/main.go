package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/windowkeep/sentrywin/pkg/sentrywin"
)

func main() {
	cfg, err := sentrywin.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := sentrywin.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx, nil); err != nil && err != context.Canceled {
		log.Fatalf("runtime exited: %v", err)
	}
}

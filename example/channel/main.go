package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/windowkeep/sentrywin/internal/adapters/listener"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := listener.NewChannel(32)
	go fanoutWorker("ingest", events.Events())

	if err := rt.Run(ctx, events); err != nil && err != context.Canceled {
		log.Fatalf("runtime exited: %v", err)
	}
}

func fanoutWorker(name string, events <-chan sentrywin.WindowEvent) {
	for evt := range events {
		switch e := evt.(type) {
		case sentrywin.Advanced:
			fmt.Printf("[%s] window %s advanced, %d signals, at %s\n",
				name, e.NewWindow.ID, len(e.Data.Data), time.Now().Format(time.RFC3339))
		case sentrywin.Closed:
			fmt.Printf("[%s] window %s closed, %d signals\n", name, e.Window.ID, len(e.Data.Data))
		default:
			// TODO: forward Opened/AddedToWindow/Paused/Resumed/Stopped downstream too.
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"time"

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

	callback := sentrywin.ListenerFunc(func(evt sentrywin.WindowEvent) {
		switch e := evt.(type) {
		case sentrywin.AddedToWindow:
			fmt.Printf("%s signal=%s window=%s\n",
				e.Signal.Timestamp.Format(time.RFC3339Nano), e.Signal.Name, e.Window.ID)
		case sentrywin.Advanced:
			fmt.Printf("%s window=%s advanced, %d signals\n",
				time.Now().Format(time.RFC3339Nano), e.NewWindow.ID, len(e.Data.Data))
		}
	})

	if err := rt.Run(ctx, callback); err != nil && err != context.Canceled {
		log.Fatalf("runtime exited: %v", err)
	}
}

// Command sentrywin-edge runs the windowing engine as a standalone
// binary: load config, wire adapters, serve /metrics, and block until
// terminated.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/windowkeep/sentrywin/pkg/sentrywin"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("sentrywin-edge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := sentrywin.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := sentrywin.NewRuntime(cfg)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx, nil)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := sentrywin.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

// snapshotView mirrors pkg/sentrywin's /snapshot response: the current
// window's signal count, not a Prometheus counter dump.
type snapshotView struct {
	SignalCount int       `json:"signal_count"`
	LastSignal  string    `json:"last_signal,omitempty"`
	AsOf        time.Time `json:"as_of"`
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/snapshot", "Engine snapshot endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Polling window state from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var view snapshotView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	last := view.LastSignal
	if last == "" {
		last = "-"
	}
	fmt.Printf("[%s] signal_count=%d last_signal=%s\n",
		view.AsOf.Format(time.RFC3339), view.SignalCount, last)
	return nil
}

func printUsage() {
	fmt.Print(`sentrywin-edge: health-signal windowing engine

Usage:
  sentrywin-edge <command> [flags]

Commands:
  run        Start the engine using the provided config
  validate   Load and validate a config file without starting the engine
  stats      Poll the engine's /snapshot endpoint and print window state

Examples:
  sentrywin-edge run -config ./data/config.yaml
  sentrywin-edge validate -config ./data/config.yaml
  sentrywin-edge stats -url http://localhost:9100/snapshot -interval 1s
`)
}

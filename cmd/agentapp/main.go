// Package main is a simple agent demo that writes rolling diagnostic logs
// and sweeps its own log folder.
//
// Usage:
//
//	go run ./cmd/agentapp -config agentapp.yaml
//
// Rotate on demand with SIGHUP; stop with SIGINT or SIGTERM. Watch the
// configured folder to see files roll over and stale ones get swept.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentdiag/rollogr"
	"github.com/agentdiag/rollogr/compressor"
	"github.com/agentdiag/rollogr/sweeper"
)

const timeBetweenLogs = 250 * time.Millisecond

func main() {
	configFile := flag.String("config", "agentapp.yaml", "path to the agent config file")
	flag.Parse()

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	rollerConfig := &rollogr.Config{
		Folder:    cfg.Log.Folder,
		Prefix:    cfg.Log.Prefix,
		MaxLines:  cfg.Log.MaxLines,
		FileCount: cfg.Log.FileCount,
	}
	if cfg.Log.Compress {
		rollerConfig.PostRotate = compressor.CompressPostRotate
	}

	roller, err := rollogr.New(rollerConfig)
	if err != nil {
		return fmt.Errorf("starting log writer: %w", err)
	}
	defer roller.Close()

	log.SetOutput(roller)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sweep events land in the rolling log itself.
	sched := sweeper.NewScheduler(&sweeper.Sweeper{
		Target: sweeper.Target{
			Path:      cfg.Sweep.Path,
			Extension: cfg.Sweep.Extension,
			MaxAge:    cfg.MaxAge(),
			Interval:  cfg.Interval(),
		},
		Notify: rollogr.Printf(log.Printf),
	})
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}
	defer sched.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		for range hup {
			if err := roller.Rotate(); err != nil {
				fmt.Fprintln(os.Stderr, "rotate:", err)
			}
		}
	}()

	makeLogs(ctx)

	return nil
}

// Write fake logs!
func makeLogs(ctx context.Context) {
	ticker := time.NewTicker(timeBetweenLogs)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Print(".")
			log.Printf("diagnostic heartbeat %d", n)
		}
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/bridge/bridge"
	"github.com/tailored-agentic-units/bridge/frontend"
	"github.com/tailored-agentic-units/bridge/observability"
	"github.com/tailored-agentic-units/bridge/transport"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to bridge config JSON file (required)")
		listenAddr = flag.String("listen", "", "Also serve the protocol over WebSocket on this address")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridge -config <file> [-listen <addr>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := bridge.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.Kernels) == 0 {
		log.Fatal("No kernel specs configured")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	// stdout carries the control protocol; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	observer := observability.NewSlogObserver(logger)

	launcher := transport.NewLauncher(cfg.Kernels)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		writer := frontend.NewLineWriter(os.Stdout)
		engine := bridge.New(*cfg, launcher, writer, bridge.WithObserver(observer))
		defer stop()
		return frontend.Serve(gctx, os.Stdin, writer, engine)
	})

	if *listenAddr != "" {
		group.Go(func() error {
			factory := func(emitter frontend.Emitter) frontend.Handler {
				return bridge.New(*cfg, launcher, emitter, bridge.WithObserver(observer))
			}
			return frontend.ListenAndServe(gctx, *listenAddr, factory)
		})
	}

	if err := group.Wait(); err != nil {
		log.Fatalf("Bridge failed: %v", err)
	}
}

// cmd/runproof/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/charityrun/runproof/internal/assets"
	"github.com/charityrun/runproof/internal/browser"
	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/ledger"
	"github.com/charityrun/runproof/internal/monitoring"
	"github.com/charityrun/runproof/internal/reconcile"
	"github.com/charityrun/runproof/internal/resolver"
	"github.com/charityrun/runproof/internal/scraper"
	"github.com/charityrun/runproof/internal/server"
	"github.com/charityrun/runproof/internal/submit"
	"github.com/charityrun/runproof/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "template":
		runTemplate()
	case "scrape":
		runScrape(os.Args[2:])
	case "version":
		fmt.Printf("runproof %s (built %s, commit %s)\n", version, buildTime, gitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`runproof - charity run submission verification service

Usage:
  runproof serve <config.yaml>       start the HTTP service
  runproof validate <config.yaml>    check a configuration file
  runproof template                  print a starter configuration
  runproof scrape <config.yaml> <url>  resolve and extract one activity
  runproof version                   print version information
`)
}

func runServe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "serve requires a configuration file")
		os.Exit(1)
	}

	cfg, err := config.LoadFromFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	app, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := app.Shutdown(ctx); err != nil {
			logger.Errorf("shutdown error: %v", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func runValidate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "validate requires a configuration file")
		os.Exit(1)
	}
	if _, err := config.LoadFromFile(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("configuration file %q is valid\n", args[0])
}

func runTemplate() {
	template := config.Template()
	data, err := yaml.Marshal(template)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal template: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

func runScrape(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "scrape requires a configuration file and an activity url")
		os.Exit(1)
	}

	cfg, err := config.LoadFromFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	delayer := utils.SleepDelayer{}

	var renderer submit.Renderer
	if cfg.Scrape.Browser != nil && cfg.Scrape.Browser.Enabled {
		r := browser.NewRenderer(*cfg.Scrape.Browser, cfg.Scrape.UserAgent, logger)
		defer r.Close()
		renderer = r
	}

	// The scrape command never touches the ledger or the proof store.
	orchestrator := submit.New(
		resolver.New(cfg.Scrape, delayer, logger),
		scraper.NewClient(cfg.Scrape, delayer, logger),
		scraper.NewExtractor(logger),
		renderer,
		reconcile.New(ledger.NewMemoryStore(), cfg.Ledger.Quota, logger),
		nil,
		monitoring.NewMetrics(cfg.Metrics.Namespace),
		logger,
	)

	result, err := orchestrator.Scrape(context.Background(), args[1], scraper.Credentials{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scrape failed: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(result)
}

// buildApp wires the full service from configuration.
func buildApp(cfg *config.Config, logger utils.Logger) (*server.Server, func(), error) {
	store, err := ledger.Open(cfg.Ledger, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: %w", err)
	}

	proofs, err := assets.NewStore(cfg.Assets, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("assets: %w", err)
	}

	delayer := utils.SleepDelayer{}
	metrics := monitoring.NewMetrics(cfg.Metrics.Namespace)

	var renderer submit.Renderer
	var closeRenderer func()
	if cfg.Scrape.Browser != nil && cfg.Scrape.Browser.Enabled {
		r := browser.NewRenderer(*cfg.Scrape.Browser, cfg.Scrape.UserAgent, logger)
		renderer = r
		closeRenderer = func() { r.Close() }
	}

	orchestrator := submit.New(
		resolver.New(cfg.Scrape, delayer, logger),
		scraper.NewClient(cfg.Scrape, delayer, logger),
		scraper.NewExtractor(logger),
		renderer,
		reconcile.New(store, cfg.Ledger.Quota, logger),
		proofs,
		metrics,
		logger,
	)

	srv := server.New(
		cfg.Server,
		orchestrator,
		proofs,
		monitoring.NewHealthHandler(store, version, logger),
		metrics,
		cfg.Metrics.Enabled,
		logger,
	)

	cleanup := func() {
		if closeRenderer != nil {
			closeRenderer()
		}
		if err := store.Close(); err != nil {
			logger.Warnf("ledger close: %v", err)
		}
	}
	return srv, cleanup, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hiroki-koketsu/todo-service/internal/cli"
	"github.com/hiroki-koketsu/todo-service/internal/client"
	"github.com/hiroki-koketsu/todo-service/internal/config"
	"github.com/hiroki-koketsu/todo-service/internal/logging"
	"github.com/hiroki-koketsu/todo-service/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	apiURL := flag.String("api", "", "todo service base URL (overrides TODO_API_URL)")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log file:", err)
		return 1
	}
	defer logFile.Close()
	logger := logging.New(cfg.LogLevel, logFile)

	api, err := client.NewAPI(cfg.APIURL, cfg.Timeout, *logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	store := client.NewStore(api, *logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		logger.Info().Str("api", cfg.APIURL).Msg("starting interactive client")
		if err := tui.Run(ctx, store); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	r := &cli.Runner{API: api, Store: store, Out: os.Stdout, Err: os.Stderr}
	code := r.Run(ctx, args)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}

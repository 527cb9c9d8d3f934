package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/diamant-gtfs/internal/common/config"
	"github.com/diamant-gtfs/internal/common/logger"
)

var version = "0.3.0"

const usage = `diamant identifies recurring service patterns in GTFS feeds.

Usage:
  diamant db create <gtfs dir|zip|url> [flags]   import a feed and identify patterns
  diamant db identify [flags]                    identify patterns in an imported feed
  diamant db get <what> [flags]                  print routes, trips, visits, stops,
                                                 patterns, assignments, identity or runs
  diamant serve [flags]                          serve the read-only HTTP API
  diamant version                                print the version

Run "diamant <command> --help" for the flags of a command.
`

type app struct {
	cfg    *config.Config
	log    logger.Logger
	stdout io.Writer
}

func main() {
	// .env is optional; the environment alone is enough.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.Console = cfg.Logging.Console
	loggerConfig.File = cfg.Logging.File
	loggerConfig.FilePath = cfg.Logging.FilePath
	loggerConfig.DiscordURL = cfg.Logging.DiscordURL
	log := logger.New(loggerConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a := &app{cfg: cfg, log: log, stdout: os.Stdout}

	err = a.run(ctx, os.Args[1:])
	stop()
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("no command given")
	}

	switch args[0] {
	case "db":
		if len(args) < 2 {
			fmt.Fprint(os.Stderr, usage)
			return errors.New("db needs a subcommand: create, identify or get")
		}
		switch args[1] {
		case "create":
			return a.dbCreate(ctx, args[2:])
		case "identify":
			return a.dbIdentify(ctx, args[2:])
		case "get":
			return a.dbGet(ctx, args[2:])
		default:
			return fmt.Errorf("unknown db subcommand %q", args[1])
		}
	case "serve":
		return a.serve(ctx, args[1:])
	case "version", "--version":
		fmt.Fprintln(a.stdout, version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

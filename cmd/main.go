package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version will be set at build time
var Version = "development"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	// canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	app.Name = "ll-withdrawer"
	app.Usage = "Withdraws ETH from LightLink to L1 through the OP-stack prove and finalize flow"
	app.Version = Version
	app.Flags = globalFlags()
	app.Before = func(c *cli.Context) error {
		if err := setupLogging(c); err != nil {
			return err
		}
		slog.Debug("Starting ll-withdrawer ("+Version+")",
			"Go Version", runtime.Version(),
			"Operating System", runtime.GOOS,
			"Architecture", runtime.GOARCH)
		return nil
	}
	app.Commands = []*cli.Command{
		WithdrawCommand,
		ResumeCommand,
		StatusCommand,
		DepositCommand,
		ServeCommand,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

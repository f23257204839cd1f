package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Proton-105/cuteforcute-bot/internal/database"
	"github.com/Proton-105/cuteforcute-bot/pkg/config"
	"github.com/Proton-105/cuteforcute-bot/pkg/logger"
)

const usage = "usage: migrate [up|down|status|version]"

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := run(command); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(command string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLog := logger.New(cfg.Logger, false)
	defer appLog.Close()
	log := appLog.Logger

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.Open(openCtx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := database.NewMigrator(db, log)

	log.Info("running migrations", slog.String("command", command))
	switch command {
	case "up":
		return migrator.Up(ctx)
	case "down":
		if err := migrator.Down(ctx); err != nil {
			return err
		}
		log.Info("rollback completed")
		return nil
	case "status":
		return migrator.Status(ctx)
	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		log.Info("current migration version", slog.Int64("version", version))
		return nil
	default:
		return fmt.Errorf("unknown command %q; %s", command, usage)
	}
}

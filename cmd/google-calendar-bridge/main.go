package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevenofnine/google-calendar-bridge/internal/app"
	"github.com/sevenofnine/google-calendar-bridge/internal/config"
	"github.com/sevenofnine/google-calendar-bridge/internal/tray"
	"github.com/sevenofnine/google-calendar-bridge/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level(cfg.LogLevel)}))
	logger.Info("google-calendar-bridge starting", "version", version.Version)

	flow := app.BuildFlow(cfg, logger)
	tr := tray.New("Google Calendar Bridge", nil)
	application := app.New(cfg, flow, tr, logger)
	return application.Run(ctx)
}

func level(v string) slog.Level {
	switch v {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "warn": slog.LevelWarn, "error": slog.LevelError, "info": slog.LevelInfo, "x": slog.LevelInfo}
	for in, want := range cases {
		if got := level(in); got != want {
			t.Fatalf("level(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRunMissingConfig(t *testing.T) {
	t.Setenv("GCB_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := run(ctx); err == nil {
		t.Fatal("expected config load error")
	}
}

func TestRunSuccessCancel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "calendars:\n  - calendar_id: primary\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GCB_CONFIG", cfgPath)
	t.Setenv("GCB_CREDENTIALS_FILE", filepath.Join(dir, "credentials.json"))
	t.Setenv("GCB_TOKEN_FILE", filepath.Join(dir, "token.json"))
	t.Setenv("GCB_BIND_ADDRESS", "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(40 * time.Millisecond)
		cancel()
	}()
	err := run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected run error: %v", err)
	}
}

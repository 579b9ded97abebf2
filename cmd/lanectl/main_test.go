package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/lanectl/internal/config"
	"github.com/danmuck/lanectl/internal/testutil/testlog"
)

func offlineConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	missing := filepath.Join(t.TempDir(), "ttyUSB9")
	cfg.Link.Line.Port = missing
	cfg.Link.Filter.Port = missing
	cfg.Link.PollInterval = 10 * time.Millisecond
	cfg.HTTP.Enabled = false
	return cfg
}

func serveWithin(t *testing.T, ctx context.Context, cfg config.Config, in string, out *bytes.Buffer) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, strings.NewReader(in), out) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return")
		return nil
	}
}

func TestServeConsoleQuitEndsProcess(t *testing.T) {
	testlog.Start(t)
	cfg := offlineConfig(t)

	var out bytes.Buffer
	if err := serveWithin(t, context.Background(), cfg, "lane 2\nquit\n", &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(out.String(), "lanectl> ") {
		t.Fatalf("console never prompted: %q", out.String())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	cfg := offlineConfig(t)
	cfg.Console = false

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := serveWithin(t, ctx, cfg, "", &bytes.Buffer{}); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestServeRejectsUnknownDriver(t *testing.T) {
	testlog.Start(t)
	cfg := offlineConfig(t)
	cfg.Link.Line.Driver = "ftdi"

	if err := serve(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected driver error")
	}
}

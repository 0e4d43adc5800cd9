package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, []string{"-h"}); err != nil {
		t.Fatalf("run -h: %v", err)
	}
	if !strings.Contains(out.String(), "Usage: mayordomo-listener") {
		t.Errorf("help output = %q", out.String())
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"-bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("err = %v", err)
	}
}

func TestRunInvalidInterval(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"-interval", "pronto"})
	if err == nil || !strings.Contains(err.Error(), "invalid interval") {
		t.Errorf("err = %v", err)
	}
}

// An invalid log_level falls back to info instead of aborting; the
// pre-cancelled context makes the listener exit right after startup.
func TestRunToleratesInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mayordomo.yaml")
	cfg := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "l.db") + "\nlog_level: shouty\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := run(ctx, &out, []string{"-config", cfgPath}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "invalid log level") {
		t.Errorf("missing fallback notice in output: %q", out.String())
	}
}

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/klauern/typesync/internal/cli"
)

func captureRun(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := cli.Run(context.Background(), append([]string{"typesync"}, args...))

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close pipe writer: %v", closeErr)
	}
	os.Stdout = old

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("failed to read captured output: %v", copyErr)
	}
	return buf.String(), runErr
}

func TestCLIInitialization(t *testing.T) {
	output, err := captureRun(t, "--help")
	if err != nil {
		t.Fatalf("CLI initialization failed: %v", err)
	}

	if !strings.Contains(output, "typesync") {
		t.Errorf("expected help output to contain 'typesync', got: %q", output)
	}
	if !strings.Contains(output, "USAGE") || !strings.Contains(output, "COMMANDS") {
		t.Errorf("expected help output to contain USAGE and COMMANDS sections, got: %q", output)
	}
}

func TestVersionFlag(t *testing.T) {
	output, err := captureRun(t, "--version")
	if err != nil {
		t.Fatalf("--version flag failed: %v", err)
	}
	if !strings.Contains(output, "typesync") {
		t.Errorf("expected version output to contain 'typesync', got: %q", output)
	}
}

func TestAllCommandsRegistered(t *testing.T) {
	output, err := captureRun(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	for _, cmd := range []string{"version", "config", "resolve", "proxies", "backup"} {
		if !strings.Contains(output, cmd) {
			t.Errorf("expected command %q to be registered, help output: %q", cmd, output)
		}
	}
	for _, flag := range []string{"--ref", "--repo", "--dry-run", "--no-backup", "--layout", "--log-format"} {
		if !strings.Contains(output, flag) {
			t.Errorf("expected root flag %s in help output: %q", flag, output)
		}
	}
}

func TestGlobalFlagsRecognized(t *testing.T) {
	tests := map[string][]string{
		"verbose flag":   {"--verbose", "version"},
		"debug flag":     {"--debug", "version"},
		"no-color flag":  {"--no-color", "version"},
		"combined flags": {"--verbose", "--no-color", "version"},
		"json logs":      {"--log-format", "json", "version", "--short"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := captureRun(t, args...); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		})
	}
}

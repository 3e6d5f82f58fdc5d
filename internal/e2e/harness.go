// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It runs typesync in-process against throwaway projects and local upstream
// repositories built with go-git.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/klauern/typesync/internal/cli"
)

// overrides are the environment variables that change CLI behavior. The
// harness blanks them so a developer's shell cannot leak into a test.
var overrides = []string{
	"OPENAI_PYTHON_REPO",
	"TYPESYNC_REF",
	"TYPESYNC_PACKAGE_DIR",
	"TYPESYNC_PACKAGE_KEEP",
	"TYPESYNC_LAYOUT",
	"TYPESYNC_IMPORT_PATH",
	"TYPESYNC_BACKUP_ENABLED",
	"TYPESYNC_BACKUP_MAX",
	"TYPESYNC_OUTPUT_COLOR",
	"TYPESYNC_OUTPUT_VERBOSE",
	"TYPESYNC_LOG_FORMAT",
}

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness runs CLI commands against an isolated project directory.
type Harness struct {
	t       *testing.T
	project *Fixture
}

// NewHarness creates a harness with an empty project directory and an
// isolated HOME.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	for _, key := range overrides {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())

	return &Harness{
		t:       t,
		project: NewFixture(t, t.TempDir()),
	}
}

// SetEnv sets an environment variable for commands run through this harness.
// The environment will be restored after the test completes.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.t.Setenv(key, value)
}

// Project returns the project directory fixture passed as --dir.
func (h *Harness) Project() *Fixture {
	return h.project
}

// Run executes typesync with args against the project and captures stdout.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()

	args = append([]string{"typesync", "--dir", h.project.Root(), "--no-color"}, args...)

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Drain concurrently so large outputs cannot fill the pipe buffer.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), args)

	// Restore stdout and close writer to signal EOF to the reader goroutine
	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}

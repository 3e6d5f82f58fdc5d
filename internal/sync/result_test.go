package sync

import (
	"strings"
	"testing"
)

func TestResult_Summary(t *testing.T) {
	r := &Result{
		Repository:      "https://example.com/sdk.git",
		Ref:             "v1.4.2",
		Commit:          "0123456789abcdef0123",
		Version:         "1.4.2",
		VersionSource:   "ref",
		PreviousVersion: "1.4.1",
		Removed:         []string{"stale.py"},
		Copied:          12,
		Generated:       []string{"a.py", "b/__init__.py"},
		VersionUpdated:  true,
		Backup:          "20260101-000000-deadbeef",
	}

	summary := r.Summary()
	for _, want := range []string{
		"Synced https://example.com/sdk.git at v1.4.2 (0123456789ab)",
		"Version:   1.4.2 (from ref)",
		"Previous:  1.4.1",
		"Copied:    12",
		"Removed:   1",
		"Proxies:   2",
		"Metadata:  updated",
		"Backup:    20260101-000000-deadbeef",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "Dry run") {
		t.Error("Summary() should not mention dry run")
	}
	if !r.Changed() {
		t.Error("Changed() = false, want true")
	}
}

func TestResult_SummaryDryRun(t *testing.T) {
	r := &Result{Repository: "repo", Ref: "main", Version: "1.0.0", DryRun: true}
	summary := r.Summary()
	if !strings.HasPrefix(summary, "Dry run - no changes made\n") {
		t.Errorf("Summary() = %q", summary)
	}
	if strings.Contains(summary, "Proxies:") || strings.Contains(summary, "Metadata:") {
		t.Errorf("dry run summary should omit write steps:\n%s", summary)
	}
}

func TestStepError(t *testing.T) {
	err := &StepError{Step: StepProxy, Err: ErrCanceled}
	if err.Error() != "proxy: sync canceled" {
		t.Errorf("Error() = %q", err.Error())
	}
	if FailedStep(err) != StepProxy {
		t.Errorf("FailedStep() = %q", FailedStep(err))
	}
	if FailedStep(ErrCanceled) != "" {
		t.Error("FailedStep() on plain error should be empty")
	}
}

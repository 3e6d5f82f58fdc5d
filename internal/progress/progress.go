// Package progress renders progress bars for the copy and archive steps.
package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/ui"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Bar counts completed steps. It draws a progressbar only on an interactive
// terminal; elsewhere the start and finish are logged at debug level.
type Bar struct {
	bar   *progressbar.ProgressBar // nil when not drawing
	label string
	total int64
	count int64
}

// Options configures New.
type Options struct {
	Max         int64
	Description string
	Writer      io.Writer // defaults to os.Stderr
}

// New starts a bar. It draws only on a colour terminal with debug logging
// off.
func New(opts Options) *Bar {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	b := &Bar{label: opts.Description, total: opts.Max}
	if !drawable(w) {
		logging.Debug(opts.Description+" started", logging.Count(int(opts.Max)))
		return b
	}

	b.bar = progressbar.NewOptions64(opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionFullWidth(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
	)
	return b
}

// Simple starts a bar on stderr.
func Simple(max int64, description string) *Bar {
	return New(Options{Max: max, Description: description})
}

// Disabled returns a bar that only counts.
func Disabled() *Bar { return &Bar{} }

// Add records n more completed steps.
func (b *Bar) Add(n int) error {
	b.count += int64(n)
	if b.bar == nil {
		return nil
	}
	return b.bar.Add(n)
}

// Count is the number of steps recorded so far.
func (b *Bar) Count() int64 { return b.count }

// Finish completes the bar.
func (b *Bar) Finish() error {
	if b.bar != nil {
		return b.bar.Finish()
	}
	if b.label != "" {
		logging.Debug(b.label+" completed", logging.Count(int(b.count)), slog.Int64("total", b.total))
	}
	return nil
}

// Clear erases a drawn bar, used when the step fails part way.
func (b *Bar) Clear() error {
	if b.bar == nil {
		return nil
	}
	return b.bar.Clear()
}

func drawable(w io.Writer) bool {
	return ui.IsColorEnabled() && IsTerminal(w) &&
		!logging.Default().Enabled(context.Background(), logging.LevelDebug)
}

// IsTerminal reports whether w is an open terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

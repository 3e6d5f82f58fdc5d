// Package logging provides structured logging for typesync using slog.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Levels re-exported so callers need not import log/slog.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler used for log records.
type Format string

const (
	// FormatText writes logfmt-style key=value records.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per record, for CI log collectors.
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for anything but text or json.
var ErrUnknownFormat = errors.New("unknown log format")

// ParseFormat accepts "text" or "json" in any case. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w %q (want text or json)", ErrUnknownFormat, s)
	}
}

var (
	defaultLogger *slog.Logger
	defaultOnce   sync.Once
)

// Options configures New. The zero value logs text at info level to stderr.
type Options struct {
	Level     slog.Level
	Output    io.Writer
	Format    Format
	AddSource bool
}

// DefaultOptions is what the CLI starts from before applying flags.
func DefaultOptions() Options {
	return Options{Level: LevelInfo, Output: os.Stderr, Format: FormatText}
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, ho))
	}
	return slog.New(slog.NewTextHandler(out, ho))
}

// Default returns the process logger, built from DefaultOptions on first use.
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(DefaultOptions())
	})
	return defaultLogger
}

// SetDefault replaces the process logger and slog's default with logger.
func SetDefault(logger *slog.Logger) {
	defaultOnce.Do(func() {})
	defaultLogger = logger
	slog.SetDefault(logger)
}

// Debug, Info, Warn and Error log through Default.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

func Info(msg string, args ...any) { Default().Info(msg, args...) }

func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

func Error(msg string, args ...any) { Default().Error(msg, args...) }

type loggerKey struct{}

// NewContext returns a context carrying logger. The sync pipeline logs
// through it, so attributes added by the caller appear on every step.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// Attribute keys shared by every package.
const (
	KeyRepo      = "repo"
	KeyRef       = "ref"
	KeyVersion   = "version"
	KeyProject   = "project"
	KeyPath      = "path"
	KeyOperation = "operation"
	KeyCount     = "count"
	KeyError     = "error"
	KeyDuration  = "duration"
)

// Attribute constructors for the keys above.
func Repo(url string) slog.Attr { return slog.String(KeyRepo, url) }
func Ref(ref string) slog.Attr { return slog.String(KeyRef, ref) }
func Version(v string) slog.Attr { return slog.String(KeyVersion, v) }
func Project(dir string) slog.Attr { return slog.String(KeyProject, dir) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

// Err attaches err under KeyError. A nil err yields an empty attribute,
// which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}

// Timer logs the duration of an operation at debug level on logger when the
// returned function is called:
//
//	defer logging.Timer(log, "sync")()
func Timer(logger *slog.Logger, op string) func() {
	if logger == nil {
		logger = Default()
	}
	start := time.Now()
	return func() {
		logger.Debug("operation finished", Operation(op), Duration(time.Since(start)))
	}
}

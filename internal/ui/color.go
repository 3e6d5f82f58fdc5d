// Package ui provides terminal output helpers for typesync: a colour
// palette, status symbols and the styled sync report.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Colour modes accepted by SetColorMode and the output.color setting.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrColorMode is returned by SetColorMode for an unrecognised mode.
var ErrColorMode = errors.New("invalid color mode")

var (
	// Success paints completed actions green.
	Success = color.New(color.FgGreen).SprintFunc()
	// Warning paints preflight and version notes yellow.
	Warning = color.New(color.FgYellow).SprintFunc()
	// Dim paints pipeline step lines.
	Dim = color.New(color.Faint).SprintFunc()
)

const (
	SymbolSuccess = "✓"
	SymbolWarning = "⚠"
	SymbolPending = "○"
)

func status(paint func(...any) string, symbol, msg string) string {
	if msg == "" {
		return paint(symbol)
	}
	return paint(symbol) + " " + msg
}

// StatusSuccess prefixes msg with a green check mark.
func StatusSuccess(msg string) string { return status(Success, SymbolSuccess, msg) }

// StatusWarning prefixes msg with a yellow warning sign.
func StatusWarning(msg string) string { return status(Warning, SymbolWarning, msg) }

// SetColorMode applies a configured colour mode. Auto leaves fatih/color's
// own terminal and NO_COLOR detection in charge.
func SetColorMode(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ColorAuto:
	case ColorAlways:
		EnableColors()
	case ColorNever:
		DisableColors()
	default:
		return fmt.Errorf("%w %q (want %s, %s or %s)", ErrColorMode, mode, ColorAuto, ColorAlways, ColorNever)
	}
	return nil
}

// DisableColors turns colour off for the rest of the process.
func DisableColors() { color.NoColor = true }

// EnableColors forces colour on, even when stdout is not a terminal.
func EnableColors() { color.NoColor = false }

// IsColorEnabled reports whether output is currently coloured.
func IsColorEnabled() bool { return !color.NoColor }

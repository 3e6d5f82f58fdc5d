package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/klauern/typesync/internal/backup"
	"github.com/klauern/typesync/internal/sync"
	"github.com/klauern/typesync/internal/ui"
)

// Options controls how much detail a report shows.
type Options struct {
	// Verbose lists removed entries and generated proxies individually.
	Verbose bool
}

type reportStyles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Item  lipgloss.Style
	Note  lipgloss.Style
}

const labelWidth = 14

func newReportStyles(r *lipgloss.Renderer) reportStyles {
	return reportStyles{
		Title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		Label: r.NewStyle().Foreground(lipgloss.Color("241")).Width(labelWidth).PaddingLeft(2),
		Value: r.NewStyle(),
		Item:  r.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(4),
		Note:  r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

var titleCaser = cases.Title(language.English)

// Write renders result to w, styled for w's color capabilities.
func Write(w io.Writer, result *sync.Result, opts Options) error {
	_, err := io.WriteString(w, Render(lipgloss.NewRenderer(w), result, opts))
	return err
}

// Render formats a sync result as a labelled block.
func Render(r *lipgloss.Renderer, result *sync.Result, opts Options) string {
	s := newReportStyles(r)
	var b strings.Builder

	heading := "sync report"
	if result.DryRun {
		heading = ui.SymbolPending + " dry run: no changes made"
	}
	b.WriteString(s.Title.Render(titleCaser.String(heading)))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(s.Label.Render(titleCaser.String(label)))
		b.WriteString(s.Value.Render(value))
		b.WriteString("\n")
	}

	row("repository", result.Repository)
	ref := result.Ref
	if result.Commit != "" {
		ref += " (" + shortCommit(result.Commit) + ")"
	}
	row("ref", ref)
	row("version", versionLine(result))

	row("mirrored", plural(result.Copied, "file"))
	row("removed", plural(len(result.Removed), "entry"))
	if opts.Verbose {
		for _, name := range result.Removed {
			b.WriteString(s.Item.Render(name))
			b.WriteString("\n")
		}
	}

	if !result.DryRun {
		row("proxies", plural(len(result.Generated), "file"))
		if opts.Verbose {
			for _, name := range result.Generated {
				b.WriteString(s.Item.Render(name))
				b.WriteString("\n")
			}
		}
		if result.VersionUpdated {
			row("metadata", "updated")
		} else {
			row("metadata", s.Note.Render("unchanged (no version line matched)"))
		}
	}
	if result.Backup != "" {
		row("backup", result.Backup)
	}

	return b.String()
}

// Backups formats backup metadata as an aligned listing, newest first.
func Backups(r *lipgloss.Renderer, backups []backup.Metadata) string {
	s := newReportStyles(r)
	if len(backups) == 0 {
		return s.Note.Render("No backups found") + "\n"
	}

	idWidth := 0
	for _, m := range backups {
		idWidth = max(idWidth, lipgloss.Width(m.ID))
	}
	id := r.NewStyle().Bold(true).Width(idWidth + 2)

	var b strings.Builder
	b.WriteString(s.Title.Render(titleCaser.String("backups")))
	b.WriteString("\n")
	for _, m := range backups {
		b.WriteString("  ")
		b.WriteString(id.Render(m.ID))
		fmt.Fprintf(&b, "%s  %s, %s", m.CreatedAt.Local().Format("2006-01-02 15:04:05"), plural(m.FileCount, "file"), humanize.IBytes(uint64(max(m.Size, 0))))
		if m.Version != "" {
			fmt.Fprintf(&b, "  version %s", m.Version)
		}
		if m.Description != "" {
			b.WriteString("  ")
			b.WriteString(s.Item.UnsetPaddingLeft().Render(m.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func versionLine(result *sync.Result) string {
	v := result.Version
	if result.VersionSource != "" {
		v += " (from " + result.VersionSource + ")"
	}
	if result.PreviousVersion != "" && result.Changed() {
		v = result.PreviousVersion + " -> " + v
	}
	return v
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func shortCommit(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Package tui provides the interactive backup browser.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/klauern/typesync/internal/backup"
)

// BackupAction is what the user chose to do with the selected snapshot.
type BackupAction int

const (
	ActionNone BackupAction = iota
	ActionRestore
	ActionDelete
	ActionVerify
)

var actionNames = map[BackupAction]string{
	ActionRestore: "restore",
	ActionDelete:  "delete",
	ActionVerify:  "verify",
}

func (a BackupAction) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "none"
}

// BackupListResult is returned once the browser exits. Action is
// ActionNone when the user quit without choosing.
type BackupListResult struct {
	Action BackupAction
	Backup backup.Metadata
}

// backupKeys implements help.KeyMap; navigation comes from the table.
type backupKeys struct {
	nav     table.KeyMap
	Restore key.Binding
	Delete  key.Binding
	Verify  key.Binding
	Filter  key.Binding
	Clear   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func newBackupKeys(nav table.KeyMap) backupKeys {
	return backupKeys{
		nav:     nav,
		Restore: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Verify:  key.NewBinding(key.WithKeys("v", "enter"), key.WithHelp("v/enter", "verify")),
		Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Clear:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k backupKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Restore, k.Delete, k.Verify, k.Filter, k.Help, k.Quit}
}

func (k backupKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nav.LineUp, k.nav.LineDown, k.nav.GotoTop, k.nav.GotoBottom},
		{k.Restore, k.Delete, k.Verify},
		{k.Filter, k.Clear},
		{k.Help, k.Quit},
	}
}

var styles = struct {
	Title, Filter, Input, Confirm, Status lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Filter:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	Input:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	Confirm: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(1, 2),
	Status:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
}

const descriptionWidth = 30

var backupColumns = []table.Column{
	{Title: "ID", Width: 24},
	{Title: "Version", Width: 10},
	{Title: "Created", Width: 16},
	{Title: "Files", Width: 6},
	{Title: "Size", Width: 9},
	{Title: "Description", Width: descriptionWidth},
}

// BackupListModel browses package snapshots, newest first as listed by the
// store.
type BackupListModel struct {
	table    table.Model
	help     help.Model
	keys     backupKeys
	backups  []backup.Metadata
	filtered []backup.Metadata
	filter   string
	result   BackupListResult

	filtering, confirming, quitting bool
}

// NewBackupListModel builds the browser over backups.
func NewBackupListModel(backups []backup.Metadata) BackupListModel {
	t := table.New(
		table.WithColumns(backupColumns),
		table.WithRows(backupsToRows(backups)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return BackupListModel{
		table:    t,
		help:     help.New(),
		keys:     newBackupKeys(t.KeyMap),
		backups:  backups,
		filtered: backups,
	}
}

func backupsToRows(backups []backup.Metadata) []table.Row {
	rows := make([]table.Row, 0, len(backups))
	for _, b := range backups {
		version := b.Version
		if version == "" {
			version = "-"
		}
		rows = append(rows, table.Row{
			b.ID,
			version,
			b.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(b.FileCount),
			formatSize(b.Size),
			ansi.Truncate(b.Description, descriptionWidth, "..."),
		})
	}
	return rows
}

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Init implements tea.Model.
func (m BackupListModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m BackupListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// title, status and help take eight lines
		m.table.SetHeight(max(msg.Height-8, 5))
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case m.confirming:
			return m.answer(msg)
		case m.filtering:
			return m.editFilter(msg), nil
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.setFilter("")
			return m, nil
		case key.Matches(msg, m.keys.Restore):
			return m.choose(ActionRestore, true)
		case key.Matches(msg, m.keys.Delete):
			return m.choose(ActionDelete, true)
		case key.Matches(msg, m.keys.Verify):
			return m.choose(ActionVerify, false)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// choose records action on the selected row. Restore and delete wait for
// a y/n answer before quitting.
func (m BackupListModel) choose(action BackupAction, confirm bool) (tea.Model, tea.Cmd) {
	selected, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.result = BackupListResult{Action: action, Backup: selected}
	if confirm {
		m.confirming = true
		return m, nil
	}
	m.quitting = true
	return m, tea.Quit
}

func (m BackupListModel) answer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.quitting = true
		return m, tea.Quit
	case "n", "esc":
		m.confirming = false
		m.result = BackupListResult{}
	}
	return m, nil
}

func (m BackupListModel) editFilter(msg tea.KeyMsg) BackupListModel {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
	case tea.KeyEsc:
		m.filtering = false
		m.setFilter("")
	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.setFilter(string(r[:len(r)-1]))
		}
	case tea.KeyRunes:
		m.setFilter(m.filter + string(msg.Runes))
	}
	return m
}

// setFilter narrows the rows to backups whose id, version, ref or
// description contain filter, ignoring case.
func (m *BackupListModel) setFilter(filter string) {
	m.filter = filter
	m.filtered = m.backups
	if filter != "" {
		needle := strings.ToLower(filter)
		m.filtered = nil
		for _, b := range m.backups {
			haystack := strings.ToLower(strings.Join([]string{b.ID, b.Version, b.Ref, b.Description}, "\x00"))
			if strings.Contains(haystack, needle) {
				m.filtered = append(m.filtered, b)
			}
		}
	}
	m.table.SetRows(backupsToRows(m.filtered))
	m.table.SetCursor(0)
}

func (m BackupListModel) selected() (backup.Metadata, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return backup.Metadata{}, false
	}
	return m.filtered[i], true
}

// View implements tea.Model.
func (m BackupListModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("Package Backups") + "\n\n")

	if m.filter != "" || m.filtering {
		value := styles.Input.Render(m.filter)
		if m.filtering {
			value += "█"
		}
		b.WriteString(styles.Filter.Render("Filter: ") + value + "\n\n")
	}

	b.WriteString(m.table.View())
	if m.confirming {
		b.WriteString("\n\n" + styles.Confirm.Render(m.prompt()))
		return b.String()
	}

	status := fmt.Sprintf("%d backup(s)", len(m.filtered))
	if m.filter != "" {
		status = fmt.Sprintf("%d of %d backup(s) match %q", len(m.filtered), len(m.backups), m.filter)
	}
	b.WriteString("\n" + styles.Status.Render(status) + "\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m BackupListModel) prompt() string {
	b := m.result.Backup
	if m.result.Action == ActionRestore {
		return fmt.Sprintf("Replace %s with backup %s? (y/n)", b.SourcePath, b.ID)
	}
	return fmt.Sprintf("Delete backup %s? (y/n)", b.ID)
}

// Result returns the user's choice.
func (m BackupListModel) Result() BackupListResult { return m.result }

// RunBackupList runs the browser full screen and returns the user's choice.
func RunBackupList(backups []backup.Metadata) (BackupListResult, error) {
	if len(backups) == 0 {
		return BackupListResult{}, nil
	}

	final, err := tea.NewProgram(NewBackupListModel(backups), tea.WithAltScreen()).Run()
	if err != nil {
		return BackupListResult{}, err
	}
	m, ok := final.(BackupListModel)
	if !ok {
		return BackupListResult{}, nil
	}
	return m.Result(), nil
}

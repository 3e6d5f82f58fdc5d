package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/klauern/typesync/internal/backup"
)

func sampleBackups() []backup.Metadata {
	return []backup.Metadata{
		{
			ID:          "20240101-120000-abc12345",
			SourcePath:  "/work/openai-types/src/openai_types",
			CreatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			Size:        1024,
			FileCount:   12,
			Version:     "1.40.0",
			Ref:         "v1.40.0",
			Description: "before sync to v1.40.0",
		},
		{
			ID:          "20240102-130000-def67890",
			SourcePath:  "/work/openai-types/src/openai_types",
			CreatedAt:   time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC),
			Size:        2048,
			FileCount:   14,
			Version:     "1.41.0",
			Ref:         "main",
			Description: "before sync to main",
		},
	}
}

func press(t *testing.T, m BackupListModel, keys ...string) (BackupListModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(BackupListModel)
	}
	return m, cmd
}

func TestNewBackupListModel(t *testing.T) {
	model := NewBackupListModel(sampleBackups())

	if len(model.backups) != 2 {
		t.Errorf("expected 2 backups, got %d", len(model.backups))
	}
	if len(model.filtered) != 2 {
		t.Errorf("expected 2 filtered backups, got %d", len(model.filtered))
	}
	if cmd := model.Init(); cmd != nil {
		t.Error("expected nil command from Init")
	}
}

func TestBackupListModel_Filter(t *testing.T) {
	tests := map[string]struct {
		filter string
		want   []string
	}{
		"by version":     {filter: "1.41", want: []string{"20240102-130000-def67890"}},
		"by ref":         {filter: "MAIN", want: []string{"20240102-130000-def67890"}},
		"by id":          {filter: "abc123", want: []string{"20240101-120000-abc12345"}},
		"by description": {filter: "v1.40", want: []string{"20240101-120000-abc12345"}},
		"no match":       {filter: "zzz", want: nil},
		"empty":          {filter: "", want: []string{"20240101-120000-abc12345", "20240102-130000-def67890"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			model := NewBackupListModel(sampleBackups())
			model.setFilter(tt.filter)

			var got []string
			for _, b := range model.filtered {
				got = append(got, b.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("filtered = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackupListModel_FilterKeys(t *testing.T) {
	model, _ := press(t, NewBackupListModel(sampleBackups()), "/", "m", "a", "i", "n", "enter")

	if model.filtering {
		t.Error("enter should finish filtering")
	}
	if model.filter != "main" || len(model.filtered) != 1 {
		t.Errorf("filter = %q with %d matches, want main with 1", model.filter, len(model.filtered))
	}

	model, _ = press(t, model, "esc")
	if model.filter != "" || len(model.filtered) != 2 {
		t.Errorf("esc should clear the filter, got %q with %d matches", model.filter, len(model.filtered))
	}
}

func TestBackupListModel_EmptyBackups(t *testing.T) {
	model := NewBackupListModel([]backup.Metadata{})

	view := model.View()
	if !strings.Contains(view, "0 backup(s)") {
		t.Errorf("expected empty status line, got:\n%s", view)
	}

	model, cmd := press(t, model, "r")
	if model.confirming || cmd != nil {
		t.Error("restore without a selection should do nothing")
	}
	if model.Result().Action != ActionNone {
		t.Errorf("expected ActionNone, got %v", model.Result().Action)
	}
}

func TestBackupListModel_QuitKey(t *testing.T) {
	model, cmd := press(t, NewBackupListModel(sampleBackups()), "q")

	if !model.quitting {
		t.Error("expected model to be quitting after pressing 'q'")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if model.Result().Action != ActionNone {
		t.Errorf("quit should leave no action, got %v", model.Result().Action)
	}
}

func TestBackupListModel_HelpToggle(t *testing.T) {
	model := NewBackupListModel(sampleBackups())
	if strings.Contains(model.View(), "clear filter") {
		t.Error("short help should not list the clear filter key")
	}

	model, _ = press(t, model, "?")
	if !model.help.ShowAll {
		t.Error("expected full help after pressing '?'")
	}
	if view := model.View(); !strings.Contains(view, "clear filter") || !strings.Contains(view, "restore") {
		t.Errorf("expected full help in view:\n%s", view)
	}

	model, _ = press(t, model, "?")
	if model.help.ShowAll {
		t.Error("expected short help after pressing '?' again")
	}
}

func TestBackupListModel_FilterStatus(t *testing.T) {
	model, _ := press(t, NewBackupListModel(sampleBackups()), "/", "1", ".", "4", "1", "enter")
	if !strings.Contains(model.View(), `1 of 2 backup(s) match "1.41"`) {
		t.Errorf("unexpected status line:\n%s", model.View())
	}

	model, _ = press(t, model, "/", "backspace")
	if model.filter != "1.4" || len(model.filtered) != 2 {
		t.Errorf("backspace should drop one rune, got %q with %d matches", model.filter, len(model.filtered))
	}
}

func TestBackupListModel_Actions(t *testing.T) {
	tests := map[string]struct {
		keys       []string
		want       BackupAction
		wantQuit   bool
		confirming bool
	}{
		"verify quits immediately":   {keys: []string{"v"}, want: ActionVerify, wantQuit: true},
		"enter verifies":             {keys: []string{"enter"}, want: ActionVerify, wantQuit: true},
		"restore asks first":         {keys: []string{"r"}, want: ActionRestore, confirming: true},
		"restore confirmed":          {keys: []string{"r", "y"}, want: ActionRestore, wantQuit: true},
		"restore declined":           {keys: []string{"r", "n"}, want: ActionNone},
		"delete confirmed":           {keys: []string{"d", "Y"}, want: ActionDelete, wantQuit: true},
		"delete cancelled by escape": {keys: []string{"d", "esc"}, want: ActionNone},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			model, cmd := press(t, NewBackupListModel(sampleBackups()), tt.keys...)

			if got := model.Result().Action; got != tt.want {
				t.Errorf("action = %v, want %v", got, tt.want)
			}
			if model.quitting != tt.wantQuit {
				t.Errorf("quitting = %v, want %v", model.quitting, tt.wantQuit)
			}
			if tt.wantQuit && cmd == nil {
				t.Error("expected quit command")
			}
			if model.confirming != tt.confirming {
				t.Errorf("confirming = %v, want %v", model.confirming, tt.confirming)
			}
			if tt.want != ActionNone && model.Result().Backup.ID != "20240101-120000-abc12345" {
				t.Errorf("selected backup = %q, want the first row", model.Result().Backup.ID)
			}
		})
	}
}

func TestBackupListModel_ConfirmView(t *testing.T) {
	model, _ := press(t, NewBackupListModel(sampleBackups()), "r")
	view := model.View()
	if !strings.Contains(view, "Replace /work/openai-types/src/openai_types with backup 20240101-120000-abc12345? (y/n)") {
		t.Errorf("unexpected restore prompt:\n%s", view)
	}

	model, _ = press(t, NewBackupListModel(sampleBackups()), "d")
	if !strings.Contains(model.View(), "Delete backup 20240101-120000-abc12345? (y/n)") {
		t.Errorf("unexpected delete prompt:\n%s", model.View())
	}
}

func TestBackupAction_String(t *testing.T) {
	for action, want := range map[BackupAction]string{
		ActionNone:    "none",
		ActionRestore: "restore",
		ActionDelete:  "delete",
		ActionVerify:  "verify",
	} {
		if got := action.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", action, got, want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		-1:         "0 B",
		0:          "0 B",
		512:        "512 B",
		1024:       "1.0 KiB",
		1536:       "1.5 KiB",
		1048576:    "1.0 MiB",
		1073741824: "1.0 GiB",
	}

	for n, want := range tests {
		if got := formatSize(n); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestBackupsToRows(t *testing.T) {
	backups := sampleBackups()[:1]
	backups = append(backups, backup.Metadata{
		ID:          "no-version",
		Description: strings.Repeat("x", 40),
	})

	rows := backupsToRows(backups)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	want := []string{"20240101-120000-abc12345", "1.40.0", "2024-01-01 12:00", "12", "1.0 KiB", "before sync to v1.40.0"}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Errorf("rows[0][%d] = %q, want %q", i, rows[0][i], cell)
		}
	}

	if rows[1][1] != "-" {
		t.Errorf("missing version should render as -, got %q", rows[1][1])
	}
	if desc := rows[1][5]; len(desc) != descriptionWidth || !strings.HasSuffix(desc, "...") {
		t.Errorf("long description should be truncated to %d chars, got %q", descriptionWidth, desc)
	}
}

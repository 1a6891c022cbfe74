package update

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/mattn/go-sqlite3"

	"remindd/internal/commands"
	"remindd/internal/lifecycle"
	"remindd/internal/storage"
)

func setupModel(t *testing.T) (Model, *storage.SQLiteRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "remindd-test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := storage.MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	now, err := time.Parse(time.RFC3339, "2025-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("parse now: %v", err)
	}
	clock := func() time.Time { return now }
	seq := 0
	newID := func() string {
		seq++
		return fmt.Sprintf("task-%04d", seq)
	}
	lc := lifecycle.NewServiceWithClock(repo, clock, newID)
	svc := commands.NewServiceWithClock(repo, lc, "user-1", clock, newID)
	return New(svc, repo).withClock(clock), repo
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive applies a message and keeps executing returned commands until
// none remain, feeding their messages back into the model.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next, cmd := m.Update(queue[0])
		queue = queue[1:]
		m = next.(Model)
		if cmd == nil {
			continue
		}
		out := cmd()
		switch typed := out.(type) {
		case nil:
		case tea.BatchMsg:
			for _, sub := range typed {
				if sub == nil {
					continue
				}
				if subMsg := sub(); subMsg != nil {
					if _, tick := subMsg.(refreshTickMsg); tick {
						continue
					}
					queue = append(queue, subMsg)
				}
			}
		case refreshTickMsg:
			// Do not follow the periodic refresh in tests.
		default:
			queue = append(queue, out)
		}
	}
	return m
}

func TestQuickAddCreatesTask(t *testing.T) {
	m, repo := setupModel(t)

	m = drive(t, m, keyRunes("a"))
	if !m.captureMode {
		t.Fatal("expected capture mode after add key")
	}
	for _, r := range "pay rent by tomorrow" {
		m = drive(t, m, keyRunes(string(r)))
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.captureMode {
		t.Fatal("capture mode should end on enter")
	}
	if !strings.Contains(m.Status.Text, `added "pay rent"`) {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}

	task, err := repo.GetTask(context.Background(), "task-0001")
	if err != nil {
		t.Fatalf("task not stored: %v", err)
	}
	if task.Title != "pay rent" || task.DueAt == nil {
		t.Fatalf("unexpected task: %+v", task)
	}
	if len(m.Tasks) != 1 {
		t.Fatalf("task list not reloaded: %d items", len(m.Tasks))
	}
}

func TestCompleteSelectedTask(t *testing.T) {
	m, repo := setupModel(t)

	m = drive(t, m, keyRunes("a"))
	for _, r := range "water plants by tomorrow every daily" {
		m = drive(t, m, keyRunes(string(r)))
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.SelectedTaskID != "task-0001" {
		t.Fatalf("selection = %q", m.SelectedTaskID)
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.Status.Text, "next occurrence due") {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}

	successor, err := repo.GetTask(context.Background(), "task-0002")
	if err != nil {
		t.Fatalf("successor missing: %v", err)
	}
	if successor.ParentTaskID != "task-0001" {
		t.Fatalf("unexpected successor: %+v", successor)
	}
	// The open-task view now shows only the successor.
	if len(m.Tasks) != 1 || m.Tasks[0].ID != "task-0002" {
		t.Fatalf("unexpected visible tasks: %+v", m.Tasks)
	}
}

func TestPaletteRunsCommand(t *testing.T) {
	m, _ := setupModel(t)

	m = drive(t, m, keyRunes("/"))
	if !m.Palette.Active {
		t.Fatal("palette not active")
	}
	for _, r := range "add dentist by 2025-03-10" {
		m = drive(t, m, keyRunes(string(r)))
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.Palette.Active {
		t.Fatal("palette should close on enter")
	}
	if !strings.Contains(m.Status.Text, `added "dentist"`) {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestPaletteReportsParseErrors(t *testing.T) {
	m, _ := setupModel(t)

	m = drive(t, m, keyRunes("/"))
	for _, r := range "frobnicate now" {
		m = drive(t, m, keyRunes(string(r)))
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unsupported command") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestFilterSwitchShowsDone(t *testing.T) {
	m, _ := setupModel(t)

	m = drive(t, m, keyRunes("/"))
	for _, r := range "add old chore by today" {
		m = drive(t, m, keyRunes(string(r)))
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter}) // complete it

	if len(m.Tasks) != 0 {
		t.Fatalf("open view should be empty, got %+v", m.Tasks)
	}
	m = drive(t, m, keyRunes("3"))
	if m.Filter != FilterDone || len(m.Tasks) != 1 || !m.Tasks[0].Completed {
		t.Fatalf("done view wrong: filter=%s tasks=%+v", m.Filter, m.Tasks)
	}

	view := m.View()
	if !strings.Contains(view, "old chore") {
		t.Fatalf("view missing completed task:\n%s", view)
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := setupModel(t)

	m = drive(t, m, keyRunes("?"))
	if !m.HelpVisible {
		t.Fatal("help not visible")
	}
	if view := m.View(); !strings.Contains(view, "remindd") {
		t.Fatalf("help view missing content:\n%s", view)
	}
	m = drive(t, m, keyRunes("?"))
	if m.HelpVisible {
		t.Fatal("help should toggle off")
	}
}

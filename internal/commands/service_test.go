package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"remindd/internal/lifecycle"
	"remindd/internal/storage"
)

func setupService(t *testing.T) (*Service, *storage.SQLiteRepository) {
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
	return NewServiceWithClock(repo, lc, "user-1", clock, newID), repo
}

func TestRunAddAndShow(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	res, err := svc.Run(ctx, "add pay rent by tomorrow")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(res.Message, `added "pay rent"`) {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	task, err := repo.GetTask(ctx, "task-0001")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.DueAt == nil || task.DueAt.Format(time.RFC3339) != "2025-03-02T23:59:59Z" {
		t.Fatalf("unexpected due date: %v", task.DueAt)
	}

	res, err = svc.Run(ctx, "show all")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(res.Message, "pay rent") {
		t.Fatalf("show missing task: %q", res.Message)
	}
}

func TestRunAddRecurringNeedsDue(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Run(context.Background(), "add water plants every daily")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRunAddBadDatePhrase(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Run(context.Background(), "add pay rent by someday")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRunDoneSpawnsSuccessor(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	if _, err := svc.Run(ctx, "add water plants by tomorrow every weekly"); err != nil {
		t.Fatalf("add: %v", err)
	}
	res, err := svc.Run(ctx, "done task-0001")
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if !strings.Contains(res.Message, "next occurrence due") {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	successor, err := repo.GetTask(ctx, "task-0002")
	if err != nil {
		t.Fatalf("get successor: %v", err)
	}
	if successor.ParentTaskID != "task-0001" || successor.Completed {
		t.Fatalf("unexpected successor: %+v", successor)
	}
}

func TestRunDoneByPrefix(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Run(ctx, "add pay rent"); err != nil {
		t.Fatalf("add: %v", err)
	}
	res, err := svc.Run(ctx, "done task-0")
	if err != nil {
		t.Fatalf("done by prefix: %v", err)
	}
	if !strings.Contains(res.Message, `completed "pay rent"`) {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestRunDoneAmbiguousPrefix(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Run(ctx, "add one"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Run(ctx, "add two"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := svc.Run(ctx, "done task-0")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected ambiguous prefix error, got %v", err)
	}
}

func TestRunDoneMissingTask(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Run(context.Background(), "done nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunReschedule(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	if _, err := svc.Run(ctx, "add dentist by 2025-03-10"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Run(ctx, "reschedule task-0001 2025-03-12 14:30"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	task, err := repo.GetTask(ctx, "task-0001")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.DueAt == nil || task.DueAt.Format(time.RFC3339) != "2025-03-12T14:30:00Z" {
		t.Fatalf("unexpected due: %v", task.DueAt)
	}
}

func TestRunShowToday(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Run(ctx, "add due soon by today"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Run(ctx, "add due later by 1w"); err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := svc.Run(ctx, "show today")
	if err != nil {
		t.Fatalf("show today: %v", err)
	}
	if !strings.Contains(res.Message, "due soon") || strings.Contains(res.Message, "due later") {
		t.Fatalf("unexpected listing: %q", res.Message)
	}
}

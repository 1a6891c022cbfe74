// Package lifecycle implements task completion, including the atomic spawn
// of a recurring task's successor.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"remindd/internal/model"
	"remindd/internal/storage"
)

// ErrMissingDueDate marks a recurring task that was completed without a base
// due date: the completion itself persisted, but no successor could be
// computed.
var ErrMissingDueDate = errors.New("lifecycle: recurring task has no due date")

// Result reports what a completion call did. Spawned is non-nil only when a
// successor was created by this call; AlreadyCompleted is true when the task
// was completed before the call (or another writer won the race), which is
// reported as success with no side effects.
type Result struct {
	Task             model.Task
	Spawned          *model.Task
	AlreadyCompleted bool
}

type Service struct {
	repo  storage.Repository
	now   func() time.Time
	newID func() string
}

func NewService(repo storage.Repository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// NewServiceWithClock pins the clock and ID source; used in tests.
func NewServiceWithClock(repo storage.Repository, now func() time.Time, newID func() string) *Service {
	return &Service{repo: repo, now: now, newID: newID}
}

// Complete marks the task done and, for recurring tasks, spawns exactly one
// successor per completion event. Re-completing is a no-op success, so
// retried or duplicated requests never double-spawn.
func (s *Service) Complete(ctx context.Context, taskID string) (Result, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return Result{}, fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Completed {
		return Result{Task: task, AlreadyCompleted: true}, nil
	}

	completedAt := s.now()

	if !task.IsRecurring {
		won, err := s.repo.CompleteTask(ctx, task.ID, completedAt)
		if err != nil {
			return Result{}, fmt.Errorf("complete task %s: %w", task.ID, err)
		}
		return s.reload(ctx, task.ID, !won)
	}

	if task.DueAt == nil {
		// Completion still goes through; only the spawn is skipped.
		won, err := s.repo.CompleteTask(ctx, task.ID, completedAt)
		if err != nil {
			return Result{}, fmt.Errorf("complete task %s: %w", task.ID, err)
		}
		res, err := s.reload(ctx, task.ID, !won)
		if err != nil {
			return Result{}, err
		}
		if res.AlreadyCompleted {
			return res, nil
		}
		return res, ErrMissingDueDate
	}

	nextDue, err := model.NextDue(*task.DueAt, task.Pattern)
	if err != nil {
		return Result{}, fmt.Errorf("compute next due for %s: %w", task.ID, err)
	}
	successor := task.Successor(s.newID(), nextDue, completedAt)

	won, err := s.repo.CompleteAndSpawn(ctx, task.ID, completedAt, successor)
	if err != nil {
		return Result{}, fmt.Errorf("complete task %s: %w", task.ID, err)
	}
	if !won {
		return s.reload(ctx, task.ID, true)
	}

	res, err := s.reload(ctx, task.ID, false)
	if err != nil {
		return Result{}, err
	}
	res.Spawned = &successor
	return res, nil
}

func (s *Service) reload(ctx context.Context, taskID string, alreadyCompleted bool) (Result, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return Result{}, fmt.Errorf("reload task %s: %w", taskID, err)
	}
	return Result{Task: task, AlreadyCompleted: alreadyCompleted}, nil
}

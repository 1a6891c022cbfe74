package storage

import (
	"context"
	"errors"
	"time"

	"remindd/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type TaskListFilter struct {
	OwnerID   string
	Completed *bool
	Limit     int
	Offset    int
}

// Repository owns task records. The conditional primitives (CompleteTask,
// CompleteAndSpawn, MarkReminderSent) only take effect when the guarded
// fields still hold their previously observed values, which is the sole
// concurrency mechanism the lifecycle and scheduler rely on.
type Repository interface {
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	// UpdateTask rewrites descriptive fields only; completion, reminder
	// state and due date move through the guarded primitives below.
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)

	// ListDueSoon returns open tasks with an unsent reminder whose due date
	// falls within [from, until].
	ListDueSoon(ctx context.Context, from, until time.Time) ([]model.Task, error)

	// SetDueDate replaces the due date and resets reminder_sent for the new
	// value. A nil due date clears the schedule.
	SetDueDate(ctx context.Context, id string, due *time.Time) error

	// CompleteTask marks the task completed if the stored row is still
	// open. Returns false when another writer completed it first.
	CompleteTask(ctx context.Context, id string, completedAt time.Time) (bool, error)

	// CompleteAndSpawn performs CompleteTask and inserts the successor in a
	// single transaction. When the completion guard fails nothing is
	// inserted and false is returned.
	CompleteAndSpawn(ctx context.Context, id string, completedAt time.Time, successor model.Task) (bool, error)

	// MarkReminderSent flips reminder_sent if the task is still unsent and
	// its due date still equals the value observed when the reminder was
	// dispatched. Returns false when the guard fails.
	MarkReminderSent(ctx context.Context, id string, due time.Time) (bool, error)
}

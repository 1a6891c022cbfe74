package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPattern = errors.New("model: invalid recurrence pattern")
	ErrInvalidTask    = errors.New("model: invalid task")
)

// Pattern governs how a completed recurring task's successor due date is
// computed.
type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

func (p Pattern) IsValid() bool {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly:
		return true
	default:
		return false
	}
}

// ParsePattern normalises user input into a Pattern.
func ParsePattern(raw string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
	}
	return p, nil
}

type Task struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	Priority     string
	Category     string
	Tags         []string
	Completed    bool
	DueAt        *time.Time
	IsRecurring  bool
	Pattern      Pattern
	ParentTaskID string
	ReminderSent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTask)
	}
	if strings.TrimSpace(t.OwnerID) == "" {
		return fmt.Errorf("%w: owner_id is required", ErrInvalidTask)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if t.IsRecurring && !t.Pattern.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, t.Pattern)
	}
	if !t.IsRecurring && t.Pattern != "" {
		return fmt.Errorf("%w: pattern set on non-recurring task", ErrInvalidTask)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is required", ErrInvalidTask)
	}
	if t.Completed && t.CompletedAt == nil {
		return fmt.Errorf("%w: completed_at is required when completed", ErrInvalidTask)
	}
	if !t.Completed && t.CompletedAt != nil {
		return fmt.Errorf("%w: completed_at must be nil while open", ErrInvalidTask)
	}
	if t.ReminderSent && t.DueAt == nil {
		return fmt.Errorf("%w: reminder_sent requires a due date", ErrInvalidTask)
	}
	return nil
}

// Successor builds the follow-up task spawned when a recurring task is
// completed. Descriptive fields carry over verbatim; the reminder flag is
// reset for the new due date and parent_task_id points at the task being
// completed.
func (t Task) Successor(id string, nextDue time.Time, now time.Time) Task {
	return Task{
		ID:           id,
		OwnerID:      t.OwnerID,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		Category:     t.Category,
		Tags:         append([]string(nil), t.Tags...),
		DueAt:        &nextDue,
		IsRecurring:  true,
		Pattern:      t.Pattern,
		ParentTaskID: t.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindd/internal/dateparse"
	"remindd/internal/lifecycle"
	"remindd/internal/model"
	"remindd/internal/storage"
)

// Service binds the command grammar to the store and the completion
// handler. One instance serves a single owner.
type Service struct {
	repo      storage.Repository
	lifecycle *lifecycle.Service
	ownerID   string
	now       func() time.Time
	newID     func() string
}

func NewService(repo storage.Repository, lc *lifecycle.Service, ownerID string) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lc,
		ownerID:   ownerID,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func NewServiceWithClock(repo storage.Repository, lc *lifecycle.Service, ownerID string, now func() time.Time, newID func() string) *Service {
	return &Service{repo: repo, lifecycle: lc, ownerID: ownerID, now: now, newID: newID}
}

// Run parses and executes one command line.
func (s *Service) Run(ctx context.Context, input string) (Result, error) {
	cmd, err := Parse(input)
	if err != nil {
		return Result{}, err
	}
	return Execute(cmd, s.Handlers(ctx))
}

func (s *Service) Handlers(ctx context.Context) Handlers {
	return Handlers{
		Add:        func(a AddArgs) (Result, error) { return s.add(ctx, a) },
		Done:       func(a DoneArgs) (Result, error) { return s.done(ctx, a) },
		Show:       func(a ShowArgs) (Result, error) { return s.show(ctx, a) },
		Reschedule: func(a RescheduleArgs) (Result, error) { return s.reschedule(ctx, a) },
	}
}

func (s *Service) add(ctx context.Context, args AddArgs) (Result, error) {
	now := s.now()
	task := model.Task{
		ID:          s.newID(),
		OwnerID:     s.ownerID,
		Title:       args.Title,
		IsRecurring: args.Every != "",
		Pattern:     args.Every,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if args.When != "" {
		due, err := dateparse.Parse(args.When, now)
		if err != nil {
			return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
		}
		task.DueAt = &due
	}
	if task.IsRecurring && task.DueAt == nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "a recurring task needs a due date"}
	}
	if err := task.Validate(); err != nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return Result{}, fmt.Errorf("create task: %w", err)
	}
	msg := fmt.Sprintf("added %q (%s)", task.Title, shortID(task.ID))
	if task.DueAt != nil {
		msg += ", due " + dueLabel(*task.DueAt)
	}
	return Result{Message: msg}, nil
}

func (s *Service) done(ctx context.Context, args DoneArgs) (Result, error) {
	id, err := s.resolveID(ctx, args.Target)
	if err != nil {
		return Result{}, err
	}
	res, err := s.lifecycle.Complete(ctx, id)
	if errors.Is(err, lifecycle.ErrMissingDueDate) {
		return Result{Message: fmt.Sprintf("completed %q; no due date, so no next occurrence was scheduled", res.Task.Title)}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if res.AlreadyCompleted {
		return Result{Message: fmt.Sprintf("%q was already completed", res.Task.Title)}, nil
	}
	msg := fmt.Sprintf("completed %q", res.Task.Title)
	if res.Spawned != nil && res.Spawned.DueAt != nil {
		msg += fmt.Sprintf(", next occurrence due %s", dueLabel(*res.Spawned.DueAt))
	}
	return Result{Message: msg}, nil
}

func (s *Service) show(ctx context.Context, args ShowArgs) (Result, error) {
	switch args.Subject {
	case "today", "all", "done", "open":
	default:
		// Anything else is treated as a task id.
		id, err := s.resolveID(ctx, args.Subject)
		if err != nil {
			return Result{}, err
		}
		task, err := s.repo.GetTask(ctx, id)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: taskLine(task)}, nil
	}

	filter := storage.TaskListFilter{OwnerID: s.ownerID}
	completed := false
	switch args.Subject {
	case "done":
		done := true
		filter.Completed = &done
	case "today", "open":
		filter.Completed = &completed
	}
	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("list tasks: %w", err)
	}

	if args.Subject == "today" {
		end := endOfDay(s.now())
		tasks = filterTasks(tasks, func(t model.Task) bool {
			return t.DueAt != nil && !t.DueAt.After(end)
		})
	}
	if args.Tag != "" {
		tasks = filterTasks(tasks, func(t model.Task) bool {
			for _, tag := range t.Tags {
				if strings.EqualFold(tag, args.Tag) {
					return true
				}
			}
			return false
		})
	}

	if len(tasks) == 0 {
		return Result{Message: "no matching tasks"}, nil
	}
	lines := make([]string, 0, len(tasks))
	for _, task := range tasks {
		lines = append(lines, taskLine(task))
	}
	return Result{Message: strings.Join(lines, "\n")}, nil
}

func (s *Service) reschedule(ctx context.Context, args RescheduleArgs) (Result, error) {
	id, err := s.resolveID(ctx, args.Target)
	if err != nil {
		return Result{}, err
	}
	due, err := dateparse.Parse(args.When, s.now())
	if err != nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	if err := s.repo.SetDueDate(ctx, id, &due); err != nil {
		return Result{}, fmt.Errorf("reschedule task: %w", err)
	}
	return Result{Message: fmt.Sprintf("rescheduled %s to %s", shortID(id), dueLabel(due))}, nil
}

// resolveID accepts a full task id or an unambiguous prefix of one.
func (s *Service) resolveID(ctx context.Context, target string) (string, error) {
	if _, err := s.repo.GetTask(ctx, target); err == nil {
		return target, nil
	}
	tasks, err := s.repo.ListTasks(ctx, storage.TaskListFilter{OwnerID: s.ownerID})
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	match := ""
	for _, task := range tasks {
		if strings.HasPrefix(task.ID, target) {
			if match != "" {
				return "", &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("ambiguous task id %q", target)}
			}
			match = task.ID
		}
	}
	if match == "" {
		return "", storage.ErrNotFound
	}
	return match, nil
}

func filterTasks(tasks []model.Task, keep func(model.Task) bool) []model.Task {
	out := tasks[:0]
	for _, task := range tasks {
		if keep(task) {
			out = append(out, task)
		}
	}
	return out
}

func taskLine(t model.Task) string {
	status := "[ ]"
	if t.Completed {
		status = "[x]"
	}
	line := fmt.Sprintf("%s %s %s", status, shortID(t.ID), t.Title)
	if t.DueAt != nil {
		line += " (due " + dueLabel(*t.DueAt) + ")"
	}
	if t.IsRecurring {
		line += " [" + string(t.Pattern) + "]"
	}
	return line
}

func dueLabel(due time.Time) string {
	return due.UTC().Format("Mon Jan 2 2006 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func endOfDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
}

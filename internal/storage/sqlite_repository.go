package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"remindd/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

const taskColumns = `id, owner_id, title, description, priority, category, tags,
	completed, due_at, is_recurring, recurrence_pattern, parent_task_id,
	reminder_sent, created_at, updated_at, completed_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskArgs(in)...,
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

// UpdateTask rewrites descriptive fields. Completion, reminder state and due
// date are deliberately excluded; those move through the guarded updates so
// concurrent writers cannot clobber them.
func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, priority = ?, category = ?, tags = ?,
		    is_recurring = ?, recurrence_pattern = ?, updated_at = ?
		WHERE id = ?`,
		in.Title, in.Description, in.Priority, in.Category, joinTags(in.Tags),
		boolInt(in.IsRecurring), string(in.Pattern), mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	return r.queryTasks(ctx, query, args...)
}

func (r *SQLiteRepository) ListDueSoon(ctx context.Context, from, until time.Time) ([]model.Task, error) {
	// Stored times compare as RFC3339Nano strings, where a fractional
	// second sorts after the bare second ("…00Z" > "…00.1Z"). Whole-second
	// bounds keep the comparison consistent with due dates, which never
	// carry fractions.
	from = from.Truncate(time.Second)
	until = until.Truncate(time.Second)
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE completed = 0
		  AND reminder_sent = 0
		  AND due_at IS NOT NULL
		  AND due_at >= ? AND due_at <= ?
		ORDER BY due_at ASC`,
		mustTime(from), mustTime(until),
	)
}

func (r *SQLiteRepository) SetDueDate(ctx context.Context, id string, due *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET due_at = ?, reminder_sent = 0, updated_at = ?
		WHERE id = ?`,
		nullTime(due), mustTime(time.Now().UTC()), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) CompleteTask(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, completeSQL, mustTime(completedAt), mustTime(completedAt), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, r.taskExists(ctx, id)
	}
	return true, nil
}

const completeSQL = `
	UPDATE tasks SET completed = 1, completed_at = ?, updated_at = ?
	WHERE id = ? AND completed = 0`

func (r *SQLiteRepository) CompleteAndSpawn(ctx context.Context, id string, completedAt time.Time, successor model.Task) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, completeSQL, mustTime(completedAt), mustTime(completedAt), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Lost the completion race (or the task is gone): no successor.
		// Checked inside the tx; the pool may have no free connection.
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskArgs(successor)...,
	); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *SQLiteRepository) MarkReminderSent(ctx context.Context, id string, due time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET reminder_sent = 1, updated_at = ?
		WHERE id = ? AND reminder_sent = 0 AND due_at = ?`,
		mustTime(time.Now().UTC()), id, mustTime(due),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *SQLiteRepository) taskExists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *SQLiteRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func taskArgs(in model.Task) []any {
	return []any{
		in.ID, in.OwnerID, in.Title, in.Description, in.Priority, in.Category,
		joinTags(in.Tags), boolInt(in.Completed), nullTime(in.DueAt),
		boolInt(in.IsRecurring), string(in.Pattern), nullString(in.ParentTaskID),
		boolInt(in.ReminderSent), mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
		nullTime(in.CompletedAt),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var tags string
	var pattern string
	var completed, recurring, reminderSent int
	var due, completedAt, parentID sql.NullString
	var created, updated string
	if err := s.Scan(
		&out.ID, &out.OwnerID, &out.Title, &out.Description, &out.Priority,
		&out.Category, &tags, &completed, &due, &recurring, &pattern,
		&parentID, &reminderSent, &created, &updated, &completedAt,
	); err != nil {
		return model.Task{}, err
	}

	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Task{}, err
	}
	dueAt, err := parseNullableTime(due)
	if err != nil {
		return model.Task{}, err
	}
	doneAt, err := parseNullableTime(completedAt)
	if err != nil {
		return model.Task{}, err
	}

	out.Tags = splitTags(tags)
	out.Completed = completed == 1
	out.DueAt = dueAt
	out.IsRecurring = recurring == 1
	out.Pattern = model.Pattern(pattern)
	if parentID.Valid {
		out.ParentTaskID = parentID.String
	}
	out.ReminderSent = reminderSent == 1
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	out.CompletedAt = doneAt
	return out, nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TaskRecord is a persisted bridge task. Payload is the task's JSON encoding.
type TaskRecord struct {
	ID        string
	ContextID string
	State     string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveTask inserts or replaces a task, keeping its original creation time
func (s *Store) SaveTask(ctx context.Context, task TaskRecord) error {
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, context_id, state, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   context_id = excluded.context_id,
		   state      = excluded.state,
		   payload    = excluded.payload,
		   updated_at = excluded.updated_at`,
		task.ID, task.ContextID, task.State, string(task.Payload), formatTime(task.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask loads a task by ID
func (s *Store) GetTask(ctx context.Context, id string) (TaskRecord, error) {
	var (
		task               TaskRecord
		payload            string
		createdAt, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, context_id, state, payload, created_at, updated_at FROM tasks WHERE id = ?`, id,
	).Scan(&task.ID, &task.ContextID, &task.State, &payload, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskRecord{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return TaskRecord{}, fmt.Errorf("get task %s: %w", id, err)
	}

	task.Payload = []byte(payload)
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updated)
	return task, nil
}

// CountTasks returns the number of stored tasks
func (s *Store) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

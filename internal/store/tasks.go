package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskSelect = `SELECT id, user_id, title, completed, created_at, updated_at FROM tasks`

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var completed int
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &completed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Completed = completed == 1
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, userID, title string) (*Task, error) {
	now := formatTime(time.Now())
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO tasks (user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`),
		userID, title, now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, userID, id)
}

// GetTask only returns tasks owned by userID.
func (s *Store) GetTask(ctx context.Context, userID string, id int64) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, s.rebind(taskSelect+` WHERE id = ? AND user_id = ?`), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(taskSelect+` WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Store) SetTaskCompleted(ctx context.Context, userID string, id int64, completed bool) (*Task, error) {
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`),
		boolInt(completed), now, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTask(ctx, userID, id)
}

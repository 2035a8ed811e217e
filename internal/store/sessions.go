package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const daySelect = `SELECT id, user_id, day, completed_minutes, active_minutes, sessions_completed, achieved, session_start, last_updated FROM daily_sessions`

const dayReturning = ` RETURNING id, user_id, day, completed_minutes, active_minutes, sessions_completed, achieved, session_start, last_updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (*DailySession, error) {
	d := &DailySession{}
	var achieved int
	var lastUpdated string
	if err := row.Scan(&d.ID, &d.UserID, &d.Day, &d.CompletedMinutes, &d.ActiveMinutes,
		&d.SessionsCompleted, &achieved, &d.SessionStart, &lastUpdated); err != nil {
		return nil, err
	}
	d.Achieved = achieved == 1
	d.LastUpdated = parseTime(lastUpdated)
	return d, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertActive overwrites the in-progress minutes of a user's day, creating
// the record when it does not exist yet.
func (s *Store) UpsertActive(ctx context.Context, userID, day string, minutes int, sessionStart int64, goal int, at time.Time) (*DailySession, error) {
	now := formatTime(at)
	row := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO daily_sessions (user_id, day, completed_minutes, active_minutes, sessions_completed, achieved, session_start, last_updated)
		VALUES (?, ?, 0, ?, 0, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET
			active_minutes = excluded.active_minutes,
			achieved = CASE WHEN daily_sessions.completed_minutes + excluded.active_minutes >= ? THEN 1 ELSE 0 END,
			session_start = CASE WHEN excluded.session_start > 0 THEN excluded.session_start ELSE daily_sessions.session_start END,
			last_updated = excluded.last_updated`+dayReturning),
		userID, day, minutes, boolInt(minutes >= goal), sessionStart, now, goal,
	)
	d, err := scanDay(row)
	if err != nil {
		return nil, fmt.Errorf("upsert active minutes: %w", err)
	}
	return d, nil
}

// FoldCompleted adds minutes to the completed total, bumps the session count
// and zeroes the in-progress minutes in one statement.
func (s *Store) FoldCompleted(ctx context.Context, userID, day string, minutes, goal int, at time.Time) (*DailySession, error) {
	now := formatTime(at)
	row := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO daily_sessions (user_id, day, completed_minutes, active_minutes, sessions_completed, achieved, session_start, last_updated)
		VALUES (?, ?, ?, 0, 1, ?, 0, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET
			completed_minutes = daily_sessions.completed_minutes + excluded.completed_minutes,
			active_minutes = 0,
			sessions_completed = daily_sessions.sessions_completed + 1,
			achieved = CASE WHEN daily_sessions.completed_minutes + excluded.completed_minutes >= ? THEN 1 ELSE 0 END,
			last_updated = excluded.last_updated`+dayReturning),
		userID, day, minutes, boolInt(minutes >= goal), now, goal,
	)
	d, err := scanDay(row)
	if err != nil {
		return nil, fmt.Errorf("fold completed minutes: %w", err)
	}
	return d, nil
}

func (s *Store) GetDay(ctx context.Context, userID, day string) (*DailySession, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(daySelect+` WHERE user_id = ? AND day = ?`), userID, day)
	d, err := scanDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get day %s: %w", day, err)
	}
	return d, nil
}

// ListDays returns a user's records ordered by day. from is inclusive, to is
// exclusive; empty bounds are open.
func (s *Store) ListDays(ctx context.Context, userID, from, to string) ([]DailySession, error) {
	query := daySelect + ` WHERE user_id = ?`
	args := []any{userID}
	if from != "" {
		query += ` AND day >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND day < ?`
		args = append(args, to)
	}
	query += ` ORDER BY day`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []DailySession
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, *d)
	}
	return days, rows.Err()
}

// AchievedDays lists the days on which the user reached the daily goal.
func (s *Store) AchievedDays(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT day FROM daily_sessions WHERE user_id = ? AND achieved = 1 ORDER BY day DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list achieved days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// DeleteDay removes a day's record. It is the only way a record goes away.
func (s *Store) DeleteDay(ctx context.Context, userID, day string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM daily_sessions WHERE user_id = ? AND day = ?`), userID, day)
	if err != nil {
		return fmt.Errorf("delete day %s: %w", day, err)
	}
	return nil
}

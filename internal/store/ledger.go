package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/focusd/internal/progress"
)

const txSelect = `SELECT id, user_id, points, type, reason, subject, idem_key, metadata, created_at FROM point_transactions`

func scanTx(row rowScanner) (*Transaction, error) {
	t := &Transaction{}
	var idem sql.NullString
	var meta, createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Points, &t.Type, &t.Reason, &t.Subject, &idem, &meta, &createdAt); err != nil {
		return nil, err
	}
	t.IdemKey = idem.String
	if err := json.Unmarshal([]byte(meta), &t.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of transaction %d: %w", t.ID, err)
	}
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// EnsureUser creates the reward row for a user on first use.
func (s *Store) EnsureUser(ctx context.Context, userID string) (*User, error) {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO users (id, xp, level, created_at, updated_at) VALUES (?, 0, 1, ?, ?) ON CONFLICT (id) DO NOTHING`),
		userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure user %q: %w", userID, err)
	}
	return s.GetUser(ctx, userID)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	u := &User{}
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, xp, level, created_at, updated_at FROM users WHERE id = ?`), userID,
	).Scan(&u.ID, &u.XP, &u.Level, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", userID, err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

// ApplyTransaction appends t to the ledger and moves the user's balance in
// the same database transaction. The balance never drops below zero; the
// previous and new balances are recorded in t.Metadata. A repeated
// idempotency key returns ErrDuplicate and changes nothing.
func (s *Store) ApplyTransaction(ctx context.Context, t *Transaction) (*Transaction, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	at := formatTime(t.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO users (id, xp, level, created_at, updated_at) VALUES (?, 0, 1, ?, ?) ON CONFLICT (id) DO NOTHING`),
		t.UserID, at, at,
	); err != nil {
		return nil, fmt.Errorf("ensure user %q: %w", t.UserID, err)
	}

	var prev int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT xp FROM users WHERE id = ?`+s.d.lockSuffix), t.UserID).Scan(&prev); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	next := prev + t.Points
	if next < 0 {
		next = 0
	}
	t.Metadata.PreviousBalance = prev
	t.Metadata.NewBalance = next

	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	idem := sql.NullString{String: t.IdemKey, Valid: t.IdemKey != ""}

	err = tx.QueryRowContext(ctx, s.rebind(
		`INSERT INTO point_transactions (user_id, points, type, reason, subject, idem_key, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		t.UserID, t.Points, string(t.Type), t.Reason, t.Subject, idem, string(meta), at,
	).Scan(&t.ID)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE users SET xp = ?, level = ?, updated_at = ? WHERE id = ?`),
		next, progress.LevelFromXP(next), at, t.UserID,
	); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return t, nil
}

// LatestTransaction returns the newest transaction matching f.
func (s *Store) LatestTransaction(ctx context.Context, f TxFilter) (*Transaction, error) {
	f.Limit = 1
	txs, err := s.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	return &txs[0], nil
}

// ListTransactions returns matching transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, f TxFilter) ([]Transaction, error) {
	query := txSelect + ` WHERE user_id = ?`
	args := []any{f.UserID}

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, f.Subject)
	}
	if f.IdemKey != "" {
		query += ` AND idem_key = ?`
		args = append(args, f.IdemKey)
	}
	if f.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(*f.Since))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// RebuildBalance recomputes a user's xp by replaying the ledger oldest first
// with the same floor at zero, and stores the result.
func (s *Store) RebuildBalance(ctx context.Context, userID string) (*User, error) {
	txs, err := s.ListTransactions(ctx, TxFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	xp := 0
	for i := len(txs) - 1; i >= 0; i-- {
		xp += txs[i].Points
		if xp < 0 {
			xp = 0
		}
	}

	if _, err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	now := formatTime(time.Now())
	if _, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET xp = ?, level = ?, updated_at = ? WHERE id = ?`),
		xp, progress.LevelFromXP(xp), now, userID,
	); err != nil {
		return nil, fmt.Errorf("store rebuilt balance: %w", err)
	}
	return s.GetUser(ctx, userID)
}

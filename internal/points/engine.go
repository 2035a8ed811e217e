// Package points converts verified focus time and task completions into
// experience. Every award is recorded in an append-only ledger and guarded by
// anti-cheat rules: a minimum duration, idempotency keys and cooldowns.
//
// A rule that withholds points is not an error. Award methods return an
// Outcome explaining why nothing was granted; errors are reserved for storage
// failures.
package points

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sadopc/focusd/internal/progress"
	"github.com/sadopc/focusd/internal/store"
)

const (
	MinFocusMinutes     = 5
	TaskCompletedPoints = 10
	TaskUncompletedCost = -5
	TaskCooldown        = 5 * time.Minute
	StreakWindow        = 24 * time.Hour
)

// StreakBonus maps the recognised streak lengths to their bonus.
var StreakBonus = map[int]int{
	7:  50,
	30: 100,
}

// Ledger is the storage the engine needs.
type Ledger interface {
	ApplyTransaction(ctx context.Context, t *store.Transaction) (*store.Transaction, error)
	LatestTransaction(ctx context.Context, f store.TxFilter) (*store.Transaction, error)
	ListTransactions(ctx context.Context, f store.TxFilter) ([]store.Transaction, error)
	EnsureUser(ctx context.Context, userID string) (*store.User, error)
	RebuildBalance(ctx context.Context, userID string) (*store.User, error)
}

// Outcome reports what an award attempt did.
type Outcome struct {
	Awarded    bool   `json:"awarded"`
	Points     int    `json:"points,omitempty"`
	NewBalance int    `json:"newBalance"`
	Level      int    `json:"level,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func rejected(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Options tune the engine.
type Options struct {
	// DailyFocusCap keys focus awards by the day's session record instead of
	// the interval, which allows only one focus award per user per day.
	DailyFocusCap bool
	Now           func() time.Time
	Logger        *slog.Logger
}

type Engine struct {
	ledger   Ledger
	dailyCap bool
	now      func() time.Time
	log      *slog.Logger
}

func NewEngine(l Ledger, opts Options) *Engine {
	e := &Engine{
		ledger:   l,
		dailyCap: opts.DailyFocusCap,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// FocusSession identifies a finished focus interval.
type FocusSession struct {
	UserID        string
	IntervalID    string
	DailyRecordID int64
	Minutes       int
}

func (e *Engine) focusKey(fs FocusSession) string {
	if e.dailyCap || fs.IntervalID == "" {
		return "focus-day:" + strconv.FormatInt(fs.DailyRecordID, 10)
	}
	return "focus:" + fs.IntervalID
}

// AwardFocusSession grants one point per minute, at most once per key.
func (e *Engine) AwardFocusSession(ctx context.Context, fs FocusSession) (Outcome, error) {
	if fs.Minutes < MinFocusMinutes {
		return rejected(fmt.Sprintf("session shorter than %d minutes", MinFocusMinutes)), nil
	}
	key := e.focusKey(fs)

	_, err := e.ledger.LatestTransaction(ctx, store.TxFilter{UserID: fs.UserID, IdemKey: key})
	switch {
	case err == nil:
		return rejected("focus session already rewarded"), nil
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, err
	}

	sessionID := fs.IntervalID
	if sessionID == "" {
		sessionID = strconv.FormatInt(fs.DailyRecordID, 10)
	}
	return e.apply(ctx, &store.Transaction{
		UserID:  fs.UserID,
		Points:  fs.Minutes,
		Type:    store.TxFocusSessionCompleted,
		Reason:  fmt.Sprintf("Completed %d-minute focus session", fs.Minutes),
		IdemKey: key,
		Metadata: store.TxMetadata{
			FocusSessionID: sessionID,
			FocusMinutes:   fs.Minutes,
		},
	})
}

// ToggleTask applies the completion bonus or the uncompletion penalty for a
// task. A task earns its completion bonus once in its lifetime.
func (e *Engine) ToggleTask(ctx context.Context, userID string, taskID int64, title string, completed bool) (Outcome, error) {
	subject := strconv.FormatInt(taskID, 10)
	now := e.now()
	cutoff := now.Add(-TaskCooldown)

	if completed {
		_, err := e.ledger.LatestTransaction(ctx, store.TxFilter{
			UserID: userID, Type: store.TxTaskUncompleted, Subject: subject, Since: &cutoff,
		})
		switch {
		case err == nil:
			return rejected("task was uncompleted less than 5 minutes ago"), nil
		case !errors.Is(err, store.ErrNotFound):
			return Outcome{}, err
		}

		_, err = e.ledger.LatestTransaction(ctx, store.TxFilter{
			UserID: userID, Type: store.TxTaskCompleted, Subject: subject,
		})
		switch {
		case err == nil:
			return rejected("task completion already rewarded"), nil
		case !errors.Is(err, store.ErrNotFound):
			return Outcome{}, err
		}

		return e.apply(ctx, &store.Transaction{
			UserID:   userID,
			Points:   TaskCompletedPoints,
			Type:     store.TxTaskCompleted,
			Reason:   fmt.Sprintf("Completed task: %s", title),
			Subject:  subject,
			IdemKey:  "task:" + subject,
			Metadata: store.TxMetadata{TaskID: taskID},
		})
	}

	last, err := e.ledger.LatestTransaction(ctx, store.TxFilter{
		UserID: userID, Type: store.TxTaskCompleted, Subject: subject,
	})
	if errors.Is(err, store.ErrNotFound) {
		return rejected("task was never rewarded"), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if last.CreatedAt.After(cutoff) {
		return rejected("task completion is locked for 5 minutes"), nil
	}

	// The bonus is paid once, so it can be taken back once.
	_, err = e.ledger.LatestTransaction(ctx, store.TxFilter{
		UserID: userID, Type: store.TxTaskUncompleted, Subject: subject, Since: &last.CreatedAt,
	})
	switch {
	case err == nil:
		return rejected("nothing to deduct, task was already uncompleted"), nil
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, err
	}

	return e.apply(ctx, &store.Transaction{
		UserID:   userID,
		Points:   TaskUncompletedCost,
		Type:     store.TxTaskUncompleted,
		Reason:   fmt.Sprintf("Uncompleted task: %s", title),
		Subject:  subject,
		Metadata: store.TxMetadata{TaskID: taskID},
	})
}

// AwardStreak grants the bonus for a 7 or 30 day streak. Other lengths are
// ignored, and the same length is rewarded at most once per 24 hours.
func (e *Engine) AwardStreak(ctx context.Context, userID string, days int) (Outcome, error) {
	bonus, ok := StreakBonus[days]
	if !ok {
		return rejected(fmt.Sprintf("no bonus for a %d-day streak", days)), nil
	}
	subject := strconv.Itoa(days)
	since := e.now().Add(-StreakWindow)

	_, err := e.ledger.LatestTransaction(ctx, store.TxFilter{
		UserID: userID, Type: store.TxDailyStreak, Subject: subject, Since: &since,
	})
	switch {
	case err == nil:
		return rejected("streak bonus already awarded today"), nil
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, err
	}

	return e.apply(ctx, &store.Transaction{
		UserID:   userID,
		Points:   bonus,
		Type:     store.TxDailyStreak,
		Reason:   fmt.Sprintf("%d-day focus streak", days),
		Subject:  subject,
		Metadata: store.TxMetadata{StreakDays: days},
	})
}

func (e *Engine) apply(ctx context.Context, t *store.Transaction) (Outcome, error) {
	t.CreatedAt = e.now()
	saved, err := e.ledger.ApplyTransaction(ctx, t)
	if errors.Is(err, store.ErrDuplicate) {
		return rejected("already rewarded"), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("record %s transaction: %w", t.Type, err)
	}
	level := progress.LevelFromXP(saved.Metadata.NewBalance)
	e.log.Info("points applied",
		"user", saved.UserID,
		"type", saved.Type,
		"points", saved.Points,
		"balance", saved.Metadata.NewBalance,
		"level", level,
	)
	return Outcome{
		Awarded:    true,
		Points:     saved.Points,
		NewBalance: saved.Metadata.NewBalance,
		Level:      level,
	}, nil
}

// Balance returns the user's xp and level progress.
func (e *Engine) Balance(ctx context.Context, userID string) (progress.Status, error) {
	u, err := e.ledger.EnsureUser(ctx, userID)
	if err != nil {
		return progress.Status{}, err
	}
	return progress.Progress(u.XP), nil
}

// History returns up to limit transactions, newest first.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]store.Transaction, error) {
	return e.ledger.ListTransactions(ctx, store.TxFilter{UserID: userID, Limit: limit})
}

// Rebuild recomputes the cached balance from the ledger.
func (e *Engine) Rebuild(ctx context.Context, userID string) (progress.Status, error) {
	u, err := e.ledger.RebuildBalance(ctx, userID)
	if err != nil {
		return progress.Status{}, err
	}
	return progress.Progress(u.XP), nil
}

// Package session keeps the per-day focus record for each user and merges
// finished intervals into it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/progress"
	"github.com/sadopc/focusd/internal/store"
)

const (
	DefaultDailyGoalMinutes = 120
	maxMinutesPerDay        = 24 * 60
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Store is the persistence the service needs.
type Store interface {
	UpsertActive(ctx context.Context, userID, day string, minutes int, sessionStart int64, goal int, at time.Time) (*store.DailySession, error)
	FoldCompleted(ctx context.Context, userID, day string, minutes, goal int, at time.Time) (*store.DailySession, error)
	GetDay(ctx context.Context, userID, day string) (*store.DailySession, error)
	ListDays(ctx context.Context, userID, from, to string) ([]store.DailySession, error)
	AchievedDays(ctx context.Context, userID string) ([]string, error)
	DeleteDay(ctx context.Context, userID, day string) error
}

// Rewards is the part of the points engine completions trigger.
type Rewards interface {
	AwardFocusSession(ctx context.Context, fs points.FocusSession) (points.Outcome, error)
	AwardStreak(ctx context.Context, userID string, days int) (points.Outcome, error)
}

type Options struct {
	DailyGoalMinutes int
	Location         *time.Location
	Now              func() time.Time
	Logger           *slog.Logger
}

type Service struct {
	store   Store
	rewards Rewards
	goal    int
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

func NewService(s Store, r Rewards, opts Options) *Service {
	svc := &Service{
		store:   s,
		rewards: r,
		goal:    opts.DailyGoalMinutes,
		loc:     opts.Location,
		now:     opts.Now,
		log:     opts.Logger,
	}
	if svc.goal <= 0 {
		svc.goal = DefaultDailyGoalMinutes
	}
	if svc.loc == nil {
		svc.loc = time.Local
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.log == nil {
		svc.log = slog.Default()
	}
	return svc
}

// Goal is the number of minutes that makes a day achieved.
func (s *Service) Goal() int { return s.goal }

// Today is the calendar day of now in the service's time zone.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

func validateMinutes(minutes int) error {
	if minutes < 0 {
		return &ValidationError{Field: "minutes", Msg: "must not be negative"}
	}
	if minutes > maxMinutesPerDay {
		return &ValidationError{Field: "minutes", Msg: "exceeds one day"}
	}
	return nil
}

// ReportActive overwrites today's in-progress minutes with the client's
// cumulative value for the current interval.
func (s *Service) ReportActive(ctx context.Context, userID string, minutes int, sessionStart int64) (*store.DailySession, error) {
	if err := validateMinutes(minutes); err != nil {
		return nil, err
	}
	if sessionStart < 0 {
		return nil, &ValidationError{Field: "sessionStartInstant", Msg: "must not be negative"}
	}
	d, err := s.store.UpsertActive(ctx, userID, s.Today(), minutes, sessionStart, s.goal, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Debug("active minutes reported", "user", userID, "day", d.Day, "active", d.ActiveMinutes)
	return d, nil
}

// Completion is the input of Complete.
type Completion struct {
	Minutes     int
	SessionType string
	IntervalID  string
}

// CompleteResult carries the merged day and what the points engine did.
type CompleteResult struct {
	Day    *store.DailySession
	Points *points.Outcome
	Streak *points.Outcome
}

// Complete folds a finished focus interval into today's completed minutes and
// clears the in-progress minutes. Points are best effort: a failing award is
// logged and the merged day is still returned.
func (s *Service) Complete(ctx context.Context, userID string, c Completion) (*CompleteResult, error) {
	if err := validateMinutes(c.Minutes); err != nil {
		return nil, err
	}
	if c.SessionType != "" && c.SessionType != "focus" {
		return nil, &ValidationError{Field: "sessionType", Msg: "only focus sessions can be completed"}
	}

	d, err := s.store.FoldCompleted(ctx, userID, s.Today(), c.Minutes, s.goal, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Info("focus session completed",
		"user", userID, "day", d.Day, "minutes", c.Minutes,
		"completed", d.CompletedMinutes, "achieved", d.Achieved)

	res := &CompleteResult{Day: d}
	if s.rewards == nil {
		return res, nil
	}

	out, err := s.rewards.AwardFocusSession(ctx, points.FocusSession{
		UserID:        userID,
		IntervalID:    c.IntervalID,
		DailyRecordID: d.ID,
		Minutes:       c.Minutes,
	})
	if err != nil {
		s.log.Warn("focus award failed", "user", userID, "err", err)
	} else {
		res.Points = &out
	}

	// A streak is only rewarded on the day that extends it. Until today is
	// achieved the current run is still anchored at yesterday.
	if !d.Achieved {
		return res, nil
	}
	streaks, err := s.Streaks(ctx, userID)
	if err != nil {
		s.log.Warn("streak lookup failed", "user", userID, "err", err)
		return res, nil
	}
	if _, ok := points.StreakBonus[streaks.Current]; ok {
		out, err := s.rewards.AwardStreak(ctx, userID, streaks.Current)
		if err != nil {
			s.log.Warn("streak award failed", "user", userID, "err", err)
		} else {
			res.Streak = &out
		}
	}
	return res, nil
}

// TodayRecord returns today's record, or a zero record when none exists.
func (s *Service) TodayRecord(ctx context.Context, userID string) (*store.DailySession, error) {
	day := s.Today()
	d, err := s.store.GetDay(ctx, userID, day)
	if errors.Is(err, store.ErrNotFound) {
		return &store.DailySession{UserID: userID, Day: day}, nil
	}
	return d, err
}

// Month lists the records of one calendar month ordered by day.
func (s *Service) Month(ctx context.Context, userID string, year int, month time.Month) ([]store.DailySession, error) {
	if month < time.January || month > time.December {
		return nil, &ValidationError{Field: "month", Msg: "must be between 1 and 12"}
	}
	if year < 1970 || year > 9999 {
		return nil, &ValidationError{Field: "year", Msg: "out of range"}
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	return s.store.ListDays(ctx, userID, first.Format("2006-01-02"), next.Format("2006-01-02"))
}

// All lists every record of the user ordered by day.
func (s *Service) All(ctx context.Context, userID string) ([]store.DailySession, error) {
	return s.store.ListDays(ctx, userID, "", "")
}

// ResetToday deletes today's record.
func (s *Service) ResetToday(ctx context.Context, userID string) error {
	return s.store.DeleteDay(ctx, userID, s.Today())
}

// Streaks derives the current and longest achieved-day runs.
func (s *Service) Streaks(ctx context.Context, userID string) (progress.Streaks, error) {
	days, err := s.store.AchievedDays(ctx, userID)
	if err != nil {
		return progress.Streaks{}, err
	}
	return progress.ComputeStreaks(days, s.Today()), nil
}

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/store"
)

var ctx = context.Background()

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc    *Service
	store  *store.Store
	engine *points.Engine
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	engine := points.NewEngine(s, points.Options{Now: clock.Now, Logger: logger})
	svc := NewService(s, engine, Options{
		Location: time.UTC,
		Now:      clock.Now,
		Logger:   logger,
	})
	return &fixture{svc: svc, store: s, engine: engine, clock: clock}
}

func TestTodayRecordMissingIsZero(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.TodayRecord(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", d.Day)
	assert.Zero(t, d.CompletedMinutes)
	assert.Zero(t, d.ActiveMinutes)
	assert.False(t, d.Achieved)
}

func TestTodayUsesLocation(t *testing.T) {
	f := newFixture(t)
	tokyo := time.FixedZone("JST", 9*60*60)
	f.clock.t = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	svc := NewService(f.store, nil, Options{Location: tokyo, Now: f.clock.Now})
	assert.Equal(t, "2026-03-15", svc.Today())
}

func TestReportActiveRejectsNegative(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReportActive(ctx, "u1", -1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "minutes", ve.Field)

	d, _ := f.svc.TodayRecord(ctx, "u1")
	assert.Zero(t, d.ID, "no record should have been created")
}

func TestReportActiveOverwrites(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReportActive(ctx, "u1", 12, 0)
	require.NoError(t, err)
	d, err := f.svc.ReportActive(ctx, "u1", 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, d.ActiveMinutes)
	assert.Equal(t, 7, d.TotalMinutes())
}

func TestCompleteRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Complete(ctx, "u1", Completion{Minutes: -5, SessionType: "focus"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Complete(ctx, "u1", Completion{Minutes: 5, SessionType: "break"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteZeroesActiveTime(t *testing.T) {
	f := newFixture(t)
	f.svc.ReportActive(ctx, "u1", 18, 0)
	before, _ := f.svc.TodayRecord(ctx, "u1")

	res, err := f.svc.Complete(ctx, "u1", Completion{Minutes: 25, SessionType: "focus", IntervalID: "i1"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Day.ActiveMinutes)

	after, err := f.svc.TodayRecord(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, after.ActiveMinutes)
	assert.Equal(t, before.CompletedMinutes+25, after.CompletedMinutes)
	assert.Equal(t, 1, after.SessionsCompleted)
}

func TestCompleteAchievedUsesCompletedOnly(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.svc.Complete(ctx, "u1", Completion{Minutes: 25, IntervalID: string(rune('a' + i))})
	}
	f.svc.ReportActive(ctx, "u1", 20, 0)
	d, _ := f.svc.TodayRecord(ctx, "u1")
	assert.True(t, d.Achieved, "100 completed + 20 active")

	res, err := f.svc.Complete(ctx, "u1", Completion{Minutes: 10, IntervalID: "e"})
	require.NoError(t, err)
	assert.Equal(t, 110, res.Day.CompletedMinutes)
	assert.False(t, res.Day.Achieved, "active minutes were discarded by the fold")
}

func TestScenarioFromFreshDay(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.ReportActive(ctx, "u1", 5, f.clock.Now().UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, 5, d.ActiveMinutes)
	assert.Equal(t, 5, d.TotalMinutes())

	d, err = f.svc.ReportActive(ctx, "u1", 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, d.ActiveMinutes)

	res, err := f.svc.Complete(ctx, "u1", Completion{Minutes: 25, SessionType: "focus", IntervalID: "i1"})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Day.CompletedMinutes)
	assert.Equal(t, 0, res.Day.ActiveMinutes)
	assert.False(t, res.Day.Achieved)
	require.NotNil(t, res.Points)
	assert.True(t, res.Points.Awarded)
	assert.Equal(t, 25, res.Points.Points)

	txs, err := f.engine.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, store.TxFocusSessionCompleted, txs[0].Type)
	assert.Equal(t, 25, txs[0].Points)
}

func TestCompleteAwardsStreakOnSeventhDay(t *testing.T) {
	f := newFixture(t)
	start := f.clock.t
	for i := 0; i < 7; i++ {
		f.clock.t = start.AddDate(0, 0, i)
		res, err := f.svc.Complete(ctx, "u1", Completion{Minutes: 120, IntervalID: f.clock.t.Format("0102")})
		require.NoError(t, err)
		if i < 6 {
			assert.Nil(t, res.Streak, "day %d", i+1)
		} else {
			require.NotNil(t, res.Streak)
			assert.True(t, res.Streak.Awarded)
			assert.Equal(t, 50, res.Streak.Points)
		}
	}

	st, err := f.svc.Streaks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, st.Current)
	assert.Equal(t, 7, st.Longest)
}

func TestStreakNotRepaidBeforeTodayIsAchieved(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		f.clock.t = start.AddDate(0, 0, i)
		_, err := f.svc.Complete(ctx, "u1", Completion{Minutes: 120, IntervalID: f.clock.t.Format("0102")})
		require.NoError(t, err)
	}

	// Day eight, more than 24 hours after the bonus, goal not yet reached.
	f.clock.t = start.AddDate(0, 0, 7).Add(time.Hour)
	res, err := f.svc.Complete(ctx, "u1", Completion{Minutes: 25, IntervalID: "day8"})
	require.NoError(t, err)
	assert.False(t, res.Day.Achieved)
	assert.Nil(t, res.Streak)

	streakTxs, err := f.store.ListTransactions(ctx, store.TxFilter{UserID: "u1", Type: store.TxDailyStreak})
	require.NoError(t, err)
	assert.Len(t, streakTxs, 1)
}

type brokenRewards struct{}

func (brokenRewards) AwardFocusSession(context.Context, points.FocusSession) (points.Outcome, error) {
	return points.Outcome{}, errors.New("ledger offline")
}

func (brokenRewards) AwardStreak(context.Context, string, int) (points.Outcome, error) {
	return points.Outcome{}, errors.New("ledger offline")
}

func TestCompleteSurvivesPointFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, brokenRewards{}, Options{Location: time.UTC, Now: f.clock.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	res, err := svc.Complete(ctx, "u1", Completion{Minutes: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Day.CompletedMinutes)
	assert.Nil(t, res.Points)
}

func TestMonth(t *testing.T) {
	f := newFixture(t)
	start := f.clock.t
	for _, offset := range []int{-20, 0, 1, 30} {
		f.clock.t = start.AddDate(0, 0, offset)
		f.svc.Complete(ctx, "u1", Completion{Minutes: 25})
	}
	f.clock.t = start

	days, err := f.svc.Month(ctx, "u1", 2026, time.March)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-14", days[0].Day)
	assert.Equal(t, "2026-03-15", days[1].Day)

	_, err = f.svc.Month(ctx, "u1", 2026, 13)
	assert.ErrorIs(t, err, ErrValidation)

	all, err := f.svc.All(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestResetToday(t *testing.T) {
	f := newFixture(t)
	f.svc.Complete(ctx, "u1", Completion{Minutes: 25})
	require.NoError(t, f.svc.ResetToday(ctx, "u1"))
	d, err := f.svc.TodayRecord(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, d.CompletedMinutes)
}

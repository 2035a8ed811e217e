package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10000, 11},
		{-50, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, LevelFromXP(c.xp), "xp=%d", c.xp)
	}
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPForNextLevel(1))
	assert.Equal(t, 400, XPForNextLevel(2))
	assert.Equal(t, 900, XPForNextLevel(3))
}

func TestProgress(t *testing.T) {
	s := Progress(250)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, 400, s.XPForNextLevel)
	assert.Equal(t, 50, s.ProgressToNextLevel)

	s = Progress(0)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, 0, s.ProgressToNextLevel)
}

func TestComputeStreaksEmpty(t *testing.T) {
	assert.Equal(t, Streaks{}, ComputeStreaks(nil, "2026-03-14"))
}

func TestComputeStreaksCurrentEndingToday(t *testing.T) {
	days := []string{"2026-03-12", "2026-03-13", "2026-03-14"}
	assert.Equal(t, Streaks{Current: 3, Longest: 3}, ComputeStreaks(days, "2026-03-14"))
}

func TestComputeStreaksCurrentEndingYesterday(t *testing.T) {
	days := []string{"2026-03-13", "2026-03-12"}
	assert.Equal(t, Streaks{Current: 2, Longest: 2}, ComputeStreaks(days, "2026-03-14"))
}

func TestComputeStreaksStaleRunIsNotCurrent(t *testing.T) {
	days := []string{"2026-03-01", "2026-03-02", "2026-03-03"}
	assert.Equal(t, Streaks{Current: 0, Longest: 3}, ComputeStreaks(days, "2026-03-14"))
}

func TestComputeStreaksGapBreaksRun(t *testing.T) {
	days := []string{
		"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04",
		"2026-03-13", "2026-03-14",
	}
	assert.Equal(t, Streaks{Current: 2, Longest: 4}, ComputeStreaks(days, "2026-03-14"))
}

func TestComputeStreaksIgnoresFutureAndDuplicates(t *testing.T) {
	days := []string{"2026-03-14", "2026-03-14", "2026-03-15", "2026-03-13"}
	assert.Equal(t, Streaks{Current: 2, Longest: 2}, ComputeStreaks(days, "2026-03-14"))
}

func TestComputeStreaksAcrossMonthBoundary(t *testing.T) {
	days := []string{"2026-02-27", "2026-02-28", "2026-03-01"}
	assert.Equal(t, 3, ComputeStreaks(days, "2026-03-01").Current)
}

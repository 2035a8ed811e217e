// Package progress derives levels and streaks from the point ledger and the
// daily session history.
package progress

import "math"

const xpPerLevelUnit = 100

// LevelFromXP grows quadratically: level 1 spans 0-99 xp, level 2 100-399,
// level 3 400-899.
func LevelFromXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	level := int(math.Sqrt(float64(xp)/xpPerLevelUnit)) + 1
	// Guard against float rounding at exact squares.
	for level > 1 && XPForNextLevel(level-1) > xp {
		level--
	}
	for XPForNextLevel(level) <= xp {
		level++
	}
	return level
}

// XPForNextLevel is the total xp at which the given level ends.
func XPForNextLevel(level int) int {
	return level * level * xpPerLevelUnit
}

// Status is the reward summary shown to a user.
type Status struct {
	XP                  int `json:"xp"`
	Level               int `json:"level"`
	XPForNextLevel      int `json:"xpForNextLevel"`
	ProgressToNextLevel int `json:"progressToNextLevel"` // percent, 0-100
}

// Progress reports how far xp is through its current level.
func Progress(xp int) Status {
	if xp < 0 {
		xp = 0
	}
	level := LevelFromXP(xp)
	next := XPForNextLevel(level)
	floor := XPForNextLevel(level - 1)
	pct := 0
	if span := next - floor; span > 0 {
		pct = (xp - floor) * 100 / span
	}
	return Status{
		XP:                  xp,
		Level:               level,
		XPForNextLevel:      next,
		ProgressToNextLevel: pct,
	}
}

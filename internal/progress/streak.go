package progress

import (
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// Streaks summarises consecutive achieved days.
type Streaks struct {
	Current int `json:"currentStreak"`
	Longest int `json:"longestStreak"`
}

// ComputeStreaks walks the achieved days most recent first. A run breaks the
// first time two achieved days are not exactly one calendar day apart.
//
// The current streak is anchored at the most recent achieved day, and only
// counts while that day is today or yesterday: a run that ended earlier is
// history.
//
// Days after today are dropped before walking, so they count toward neither
// streak. Read literally, a future anchor would instead make the current
// streak 0 and still add to the longest run. Dropping them treats a future
// record as clock skew between client and server, which keeps one skewed
// record from erasing a real run.
func ComputeStreaks(achievedDays []string, today string) Streaks {
	todayT, err := time.Parse(dayLayout, today)
	if err != nil {
		return Streaks{}
	}

	var days []time.Time
	seen := make(map[string]bool, len(achievedDays))
	for _, d := range achievedDays {
		if seen[d] {
			continue
		}
		t, err := time.Parse(dayLayout, d)
		if err != nil || t.After(todayT) {
			continue
		}
		seen[d] = true
		days = append(days, t)
	}
	if len(days) == 0 {
		return Streaks{}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	var s Streaks
	run := 1
	first := true
	for i := 1; i <= len(days); i++ {
		if i < len(days) && days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			run++
			continue
		}
		if first {
			if gap := todayT.Sub(days[0]); gap <= 24*time.Hour {
				s.Current = run
			}
			first = false
		}
		if run > s.Longest {
			s.Longest = run
		}
		run = 1
	}
	return s
}

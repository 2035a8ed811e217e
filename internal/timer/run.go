package timer

import (
	"context"
	"time"
)

// Schedule sets the cadence of Run.
type Schedule struct {
	Tick       time.Duration
	FirstFlush time.Duration
	Flush      time.Duration
}

// DefaultSchedule ticks every second, saves after the first minute and every
// thirty seconds after that.
var DefaultSchedule = Schedule{
	Tick:       time.Second,
	FirstFlush: time.Minute,
	Flush:      30 * time.Second,
}

// Run drives the machine until ctx is cancelled, then makes one last
// best-effort delivery and waits a bounded time for it. It is used by the headless timer; the TUI schedules
// the same work through tea commands.
func (m *Machine) Run(ctx context.Context, sched Schedule) error {
	if sched.Tick <= 0 {
		sched = DefaultSchedule
	}
	tick := time.NewTicker(sched.Tick)
	defer tick.Stop()
	first := time.NewTimer(sched.FirstFlush)
	defer first.Stop()

	// nil until the first flush fires; a nil channel never selects.
	var flushC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			m.Unload()
			m.Drain(DrainTimeout)
			return nil
		case <-tick.C:
			if m.Tick() {
				if err := m.Complete(ctx); err != nil {
					m.log.Warn("interval finished but not recorded; retry with the next action", "err", err)
				}
			}
		case <-first.C:
			m.Flush("autosave")
			flush := time.NewTicker(sched.Flush)
			defer flush.Stop()
			flushC = flush.C
		case <-flushC:
			m.Flush("autosave")
		}
	}
}

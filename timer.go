package timerq

import "log/slog"

// TimerID identifies a scheduled timer.
// IDs are allocated from an atomic counter, are monotonically increasing
// and are never reused during the process lifetime.
type TimerID int64

// timer is the schedulable unit. The id table holds the only strong
// reference to it, the expiry index refers to it through generation-checked
// handles only.
type timer struct {
	id TimerID
	// period is the firing interval in ticks. Zero for immediate one-shots.
	period Tick
	// remaining is the number of firings left. A one-shot starts at 1.
	remaining int
	// nextExpiry is the scheduled tick of the next firing. Repeat timers
	// advance it by period from the previous scheduled (not actual) expiry,
	// so cumulative drift stays bounded.
	nextExpiry Tick
	callback   func()
}

func (t *timer) LogValue() slog.Value {
	if t == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Int64("id", int64(t.id)),
		slog.Int64("period", int64(t.period)),
		slog.Int("remaining", t.remaining),
		slog.Int64("next_expiry", int64(t.nextExpiry)),
	)
}

// firing is a fired callback queued for dispatch.
type firing struct {
	id TimerID
	cb func()
}

package timerq

import (
	"sync/atomic"
	"time"
)

// StatsReport is a point-in-time snapshot of manager counters.
type StatsReport struct {
	// Time is the moment the report was taken.
	Time time.Time `json:"time"`
	// ActiveTimers is the number of currently scheduled timers.
	ActiveTimers uint64 `json:"active_timers"`
	// TimersCreated is the total number of timers created.
	TimersCreated uint64 `json:"timers_created"`
	// CallbacksFired is the total number of callbacks executed by the dispatcher.
	CallbacksFired uint64 `json:"callbacks_fired"`
	// TimersCancelled is the total number of timers removed by CancelTimer.
	TimersCancelled uint64 `json:"timers_cancelled"`
	// CallbacksDropped is the number of queued callbacks dropped at shutdown.
	CallbacksDropped uint64 `json:"callbacks_dropped"`
}

type statsRecorder struct {
	active    atomic.Int64
	created   atomic.Uint64
	fired     atomic.Uint64
	cancelled atomic.Uint64
	dropped   atomic.Uint64
}

func (r *statsRecorder) report() StatsReport {
	return StatsReport{
		Time:             time.Now(),
		ActiveTimers:     clampToUint64(r.active.Load()),
		TimersCreated:    r.created.Load(),
		CallbacksFired:   r.fired.Load(),
		TimersCancelled:  r.cancelled.Load(),
		CallbacksDropped: r.dropped.Load(),
	}
}

func clampToUint64(value int64) uint64 {
	if value <= 0 {
		return 0
	}
	return uint64(value)
}

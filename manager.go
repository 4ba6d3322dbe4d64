package timerq

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/eapache/queue"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/timerq/log"
)

// ManagerState is a lifecycle state of a [Manager].
type ManagerState string

const (
	// ManagerStateRunning is the normal operating state.
	ManagerStateRunning ManagerState = "running"
	// ManagerStateClosing means [Manager.Close] is in progress.
	ManagerStateClosing ManagerState = "closing"
	// ManagerStateClosed is the terminal state.
	ManagerStateClosed ManagerState = "closed"
)

const (
	evtClose = "close"
	evtDone  = "done"
)

// DefaultPollInterval is the scheduler wake-up period used when
// [ManagerOptions.PollInterval] is not set.
const DefaultPollInterval = time.Millisecond

// ManagerOptions customize a [Manager].
type ManagerOptions struct {
	// Clock is the tick source. Defaults to [DefaultClock].
	Clock Clock
	// PollInterval is the upper bound on how long the scheduler sleeps
	// between expiry scans. Defaults to [DefaultPollInterval].
	PollInterval time.Duration
	// Logger is the logger. Defaults to [log.Default].
	Logger *slog.Logger
}

func (o *ManagerOptions) clock() Clock {
	if o == nil || o.Clock == nil {
		return DefaultClock()
	}
	return o.Clock
}

func (o *ManagerOptions) pollInterval() time.Duration {
	if o == nil || o.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return o.PollInterval
}

func (o *ManagerOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Manager owns a set of timers and the pair of goroutines that drive them:
// a scheduler that scans for expired timers and a dispatcher that runs
// their callbacks one at a time in firing order.
//
// Callbacks run on the dispatcher goroutine, so a callback never observes
// another callback of the same manager running concurrently. A callback
// may freely call [Manager.CreateTimer], [Manager.CreateRepeatTimer] and
// [Manager.CancelTimer], but must not call [Manager.Close].
type Manager struct {
	clock     Clock
	pollEvery time.Duration
	log       *slog.Logger

	// mu guards the arena, the id table, the expiry index and the stopped
	// flag as one unit, so every operation observes them consistent with
	// each other.
	mu      sync.Mutex
	arena   timerArena
	byID    map[TimerID]handle
	index   *expiryIndex
	stopped bool

	nextID atomic.Int64

	evtMu     sync.Mutex
	evtCond   *sync.Cond
	evtQueue  *queue.Queue
	evtClosed bool

	fsm *stateless.StateMachine

	stopCh    chan struct{}
	schedDone chan struct{}
	dispDone  chan struct{}

	closeOnce sync.Once

	stats statsRecorder
}

// NewManager creates a manager and starts its scheduler and dispatcher
// goroutines. The caller must call [Manager.Close] to release them.
func NewManager(opts *ManagerOptions) *Manager {
	m := &Manager{
		clock:     opts.clock(),
		pollEvery: opts.pollInterval(),
		log:       opts.log(),
		byID:      make(map[TimerID]handle),
		index:     newExpiryIndex(),
		evtQueue:  queue.New(),
		stopCh:    make(chan struct{}),
		schedDone: make(chan struct{}),
		dispDone:  make(chan struct{}),
	}
	m.evtCond = sync.NewCond(&m.evtMu)

	m.fsm = stateless.NewStateMachineWithMode(ManagerStateRunning, stateless.FiringQueued)
	m.fsm.Configure(ManagerStateRunning).
		Permit(evtClose, ManagerStateClosing)
	m.fsm.Configure(ManagerStateClosing).
		OnEntry(m.actClosing).
		Permit(evtDone, ManagerStateClosed)
	m.fsm.Configure(ManagerStateClosed).
		OnEntry(m.actClosed)

	go m.schedule()
	go m.dispatch()

	m.log.LogAttrs(context.Background(), slog.LevelDebug, "timer manager started",
		slog.Duration("poll_interval", m.pollEvery),
	)

	return m
}

func (m *Manager) actClosing(_ context.Context, _ ...any) error {
	close(m.stopCh)
	return nil
}

func (m *Manager) actClosed(_ context.Context, _ ...any) error {
	m.log.LogAttrs(context.Background(), slog.LevelDebug, "timer manager closed",
		slog.Any("stats", m.Stats()),
	)
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() ManagerState {
	s, _ := m.fsm.MustState().(ManagerState)
	return s
}

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() StatsReport { return m.stats.report() }

func (m *Manager) LogValue() slog.Value {
	if m == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("state", string(m.State())),
		slog.Int64("active_timers", m.stats.active.Load()),
	)
}

// ticks converts d to whole ticks, rounding up so a timer never fires
// earlier than the requested delay.
func ticks(d time.Duration) Tick {
	return Tick((d + time.Millisecond - 1) / time.Millisecond)
}

// CreateTimer schedules cb to run once after delay. A zero delay fires
// on the next scheduler scan. Delays are rounded up to whole milliseconds.
func (m *Manager) CreateTimer(delay time.Duration, cb func()) (TimerID, error) {
	if delay < 0 {
		return 0, NewInvalidArgumentError("negative delay %v", delay)
	}
	if cb == nil {
		return 0, NewInvalidArgumentError("nil callback")
	}
	return errtrace.Wrap2(m.create(ticks(delay), 1, cb))
}

// CreateRepeatTimer schedules cb to run repeat times, delay apart.
// The first firing happens one full delay from now. Both delay and repeat
// must be positive. Delays are rounded up to whole milliseconds.
func (m *Manager) CreateRepeatTimer(delay time.Duration, repeat int, cb func()) (TimerID, error) {
	if delay <= 0 {
		return 0, NewInvalidArgumentError("non-positive delay %v", delay)
	}
	if repeat <= 0 {
		return 0, NewInvalidArgumentError("non-positive repeat count %d", repeat)
	}
	if cb == nil {
		return 0, NewInvalidArgumentError("nil callback")
	}
	return errtrace.Wrap2(m.create(ticks(delay), repeat, cb))
}

func (m *Manager) create(period Tick, remaining int, cb func()) (TimerID, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return 0, errtrace.Wrap(error(ErrManagerClosed))
	}

	id := TimerID(m.nextID.Add(1))
	t := &timer{
		id:         id,
		period:     period,
		remaining:  remaining,
		nextExpiry: m.clock.Now() + period,
		callback:   cb,
	}
	h := m.arena.alloc(t)
	m.byID[id] = h
	m.index.add(t.nextExpiry, h)
	m.mu.Unlock()

	m.stats.created.Add(1)
	m.stats.active.Add(1)

	m.log.LogAttrs(context.Background(), slog.LevelDebug, "timer created",
		slog.Any("timer", t),
	)

	return id, nil
}

// CancelTimer removes the timer with the given id and reports whether it
// was still scheduled. Cancelling is lazy: the expiry index is never
// scanned, its stale handles simply stop resolving. On a closed manager
// every id reports false, Close drops all registered timers.
//
// Cancelling a timer whose callback is already queued for dispatch does
// not recall that callback. At most one more firing may run after
// CancelTimer returns true.
func (m *Manager) CancelTimer(id TimerID) bool {
	m.mu.Lock()
	h, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
		m.arena.release(h)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	m.stats.cancelled.Add(1)
	m.stats.active.Add(-1)

	m.log.LogAttrs(context.Background(), slog.LevelDebug, "timer cancelled",
		slog.Int64("id", int64(id)),
	)

	return true
}

// schedule is the scheduler goroutine body. It wakes at least every
// pollEvery, collects the timers whose expiry tick has passed and hands
// their callbacks to the dispatcher in firing order.
func (m *Manager) schedule() {
	defer close(m.schedDone)

	tmr := time.NewTimer(m.pollEvery)
	defer tmr.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-tmr.C:
		}

		if batch := m.collectDue(m.clock.Now()); len(batch) > 0 {
			m.enqueue(batch)
		}

		tmr.Reset(m.pollEvery)
	}
}

// collectDue pops every expired bucket from the index and builds the
// dispatch batch. A timer missed for several periods while the process
// was descheduled fires once per missed period in the same batch, keeping
// the total firing count exact. Handles that no longer resolve belonged
// to cancelled timers and are skipped.
func (m *Manager) collectDue(now Tick) []firing {
	m.mu.Lock()
	defer m.mu.Unlock()

	if min, ok := m.index.min(); !ok || min > now {
		return nil
	}

	var batch []firing
	for _, b := range m.index.popDue(now) {
		for _, h := range b.handles {
			t := m.arena.resolve(h)
			if t == nil {
				continue
			}
			for {
				batch = append(batch, firing{id: t.id, cb: t.callback})
				t.remaining--
				t.nextExpiry += t.period
				if t.remaining <= 0 || t.nextExpiry > now {
					break
				}
			}
			if t.remaining > 0 {
				m.index.add(t.nextExpiry, h)
			} else {
				delete(m.byID, t.id)
				m.arena.release(h)
				m.stats.active.Add(-1)
			}
		}
	}
	return batch
}

// enqueue appends the batch to the dispatch queue and wakes the dispatcher.
// The queue is always open here: Close joins the scheduler before marking
// the queue closed.
func (m *Manager) enqueue(batch []firing) {
	m.evtMu.Lock()
	for _, f := range batch {
		m.evtQueue.Add(f)
	}
	m.evtMu.Unlock()

	m.evtCond.Signal()
}

// dispatch is the dispatcher goroutine body. It drains the queue in
// batches and runs callbacks strictly sequentially, so firings of the
// same timer and of different timers never overlap.
func (m *Manager) dispatch() {
	defer close(m.dispDone)

	for {
		m.evtMu.Lock()
		for !m.evtClosed && m.evtQueue.Length() == 0 {
			m.evtCond.Wait()
		}
		if m.evtClosed {
			dropped := m.evtQueue.Length()
			m.evtMu.Unlock()
			if dropped > 0 {
				m.stats.dropped.Add(uint64(dropped))
				m.log.LogAttrs(context.Background(), slog.LevelDebug, "pending callbacks dropped at shutdown",
					slog.Int("count", dropped),
				)
			}
			return
		}
		batch := make([]firing, 0, m.evtQueue.Length())
		for m.evtQueue.Length() > 0 {
			batch = append(batch, m.evtQueue.Remove().(firing))
		}
		m.evtMu.Unlock()

		for _, f := range batch {
			m.runCallback(f)
		}
	}
}

func (m *Manager) runCallback(f firing) {
	defer func() {
		if r := recover(); r != nil {
			m.log.LogAttrs(context.Background(), slog.LevelError, "timer callback panicked",
				slog.Int64("id", int64(f.id)),
				slog.Any("panic", r),
			)
		}
	}()

	m.stats.fired.Add(1)
	f.cb()
}

// Close stops the scheduler and the dispatcher and waits for both to
// exit. Timers still registered are dropped, so cancelling any id on a
// closed manager reports false. Callbacks already queued but not yet
// started are dropped, not run. Close is idempotent and must not be
// called from a timer callback, the dispatcher cannot exit while a
// callback is on its stack.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()

		if err := m.fsm.Fire(evtClose); err != nil {
			m.log.LogAttrs(context.Background(), slog.LevelError, "close transition failed",
				slog.Any("error", err),
			)
		}

		<-m.schedDone

		m.dropScheduled()

		m.evtMu.Lock()
		m.evtClosed = true
		m.evtMu.Unlock()
		m.evtCond.Signal()

		<-m.dispDone

		if err := m.fsm.Fire(evtDone); err != nil {
			m.log.LogAttrs(context.Background(), slog.LevelError, "done transition failed",
				slog.Any("error", err),
			)
		}
	})
	return nil
}

// dropScheduled releases every timer still registered. Runs after the
// scheduler has exited, nothing concurrently re-inserts into the index.
func (m *Manager) dropScheduled() {
	m.mu.Lock()
	n := len(m.byID)
	for id, h := range m.byID {
		m.arena.release(h)
		delete(m.byID, id)
	}
	m.index = newExpiryIndex()
	m.mu.Unlock()

	if n > 0 {
		m.stats.active.Add(-int64(n))
		m.log.LogAttrs(context.Background(), slog.LevelDebug, "scheduled timers dropped at shutdown",
			slog.Int("count", n),
		)
	}
}

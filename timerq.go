package timerq

import (
	"sync"
	"time"

	"braces.dev/errtrace"
)

// Version is the current library version.
var Version = "0.0.0"

var (
	defOnce sync.Once
	defMgr  *Manager
)

// Default returns the process-wide shared [Manager].
// It is created lazily on first use with default options and lives until
// something calls its Close, usually at process exit.
func Default() *Manager {
	defOnce.Do(func() {
		defMgr = NewManager(nil)
	})
	return defMgr
}

// CreateTimer schedules cb on the default manager.
// See [Manager.CreateTimer].
func CreateTimer(delay time.Duration, cb func()) (TimerID, error) {
	return errtrace.Wrap2(Default().CreateTimer(delay, cb))
}

// CreateRepeatTimer schedules cb on the default manager.
// See [Manager.CreateRepeatTimer].
func CreateRepeatTimer(delay time.Duration, repeat int, cb func()) (TimerID, error) {
	return errtrace.Wrap2(Default().CreateRepeatTimer(delay, repeat, cb))
}

// CancelTimer cancels a timer on the default manager.
// See [Manager.CancelTimer].
func CancelTimer(id TimerID) bool {
	return Default().CancelTimer(id)
}

// Package timerq implements millisecond-resolution software timers
// multiplexed over two goroutines per [Manager]: one scans for expired
// timers, the other runs their callbacks strictly one at a time.
//
// Timers are one-shot or repeat with a fixed firing count. Callbacks of
// one manager never run concurrently with each other, and a callback may
// schedule or cancel further timers. Cancellation is lazy and cheap, but
// a callback already handed to the dispatcher still runs, so at most one
// extra firing can follow a successful cancel.
//
// Most programs use the package-level [CreateTimer], [CreateRepeatTimer]
// and [CancelTimer], which share a lazily created process-wide manager.
// Create a dedicated [Manager] to control the clock source, the poll
// interval, the logger or the shutdown moment.
package timerq

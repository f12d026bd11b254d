package pipeline

import "time"

// Scheduler provides a cancelable one-shot timer. Injectable so tests
// can drive ticks deterministically instead of depending on wall-clock
// delays.
type Scheduler interface {
	// Schedule runs fn once after d. The returned cancel function stops
	// a pending fn from firing; canceling an already-fired schedule is
	// a no-op.
	Schedule(d time.Duration, fn func()) (cancel func())
}

// timerScheduler is the default Scheduler backed by time.AfterFunc.
type timerScheduler struct{}

// NewTimerScheduler returns the wall-clock Scheduler used in production.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

package room

import "time"

// TimerHandle cancels a scheduled callback. Cancel is idempotent and safe to
// call after the timer has fired.
type TimerHandle interface {
	Cancel()
}

// Scheduler schedules one-shot callbacks. The default implementation wraps
// time.AfterFunc; tests substitute a manual scheduler to fire timers
// deterministically.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) TimerHandle
}

type timerHandle struct {
	t *time.Timer
}

func (h *timerHandle) Cancel() {
	h.t.Stop()
}

type wallClockScheduler struct{}

// NewScheduler returns the wall-clock scheduler.
func NewScheduler() Scheduler {
	return wallClockScheduler{}
}

func (wallClockScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	return &timerHandle{t: time.AfterFunc(d, fn)}
}

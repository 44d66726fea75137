package game

import "time"

// TimerHandle is a cancellable pending callback. Stop reports whether the
// callback was prevented from running.
type TimerHandle interface {
	Stop() bool
}

// Scheduler schedules delayed callbacks. The real implementation wraps
// time.AfterFunc; tests substitute a manual one so they control time.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) TimerHandle
}

type realScheduler struct{}

// NewScheduler returns a Scheduler backed by the wall clock
func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	return realTimer{time.AfterFunc(d, fn)}
}

type realTimer struct {
	t *time.Timer
}

func (rt realTimer) Stop() bool {
	return rt.t.Stop()
}

package ui

import (
	"sync"
	"time"
)

// Timer runs a callback on a fixed interval until stopped. Layouts own
// their timers and must stop them before tearing the widget tree down,
// mirroring the destroy-timers-then-destroy-screen ordering the display
// stack requires.
type Timer struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewTimer starts a timer firing fn every interval.
func NewTimer(interval time.Duration, fn func()) *Timer {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	t := &Timer{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

// Stop halts the timer and waits for any in-flight callback to return.
// Safe to call more than once.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

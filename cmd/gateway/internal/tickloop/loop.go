package tickloop

import (
	"sync"
	"time"
)

// Loop runs an action on a fixed period until stopped.
type Loop struct {
	ticker Ticker
	fn     func()

	mu      sync.Mutex
	stopped bool
	fires   int
	done    chan struct{}
	exited  chan struct{}
}

// Start arms a loop calling fn every interval. The first call happens one
// interval after Start.
func Start(clock Clock, interval time.Duration, fn func()) *Loop {
	l := &Loop{
		ticker: clock.NewTicker(interval),
		fn:     fn,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case <-l.done:
			return
		case <-l.ticker.C():
			if !l.begin() {
				return
			}
			l.fn()
		}
	}
}

func (l *Loop) begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.fires++
	return true
}

// Stop cancels the loop. Once it returns no new action starts; an action
// already running is allowed to finish. Safe to call repeatedly and from
// inside the action. Reports whether this call did the cancelling.
func (l *Loop) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.stopped = true
	l.ticker.Stop()
	close(l.done)
	return true
}

// Fires reports how many times the action has started.
func (l *Loop) Fires() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fires
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.exited }

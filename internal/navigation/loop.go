package navigation

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop serialises every mutation of a session onto one goroutine. Callbacks
// from location sources and route engines are posted here before they touch
// session state.
type Loop struct {
	events  chan func()
	stopped chan struct{}
}

func NewLoop(size int) *Loop {
	return &Loop{
		events:  make(chan func(), size),
		stopped: make(chan struct{}),
	}
}

// Run executes posted events until ctx is done. It must be called once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Post queues fn. It blocks while the queue is full and drops fn once the
// loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case l.events <- fn:
	case <-l.stopped:
	}
}

// TryPost queues fn without blocking. It reports false when the queue is full
// or the loop has stopped.
func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case l.events <- wrapped:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped is closed when Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

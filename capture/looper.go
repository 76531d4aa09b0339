package capture

import (
	"context"
	"sync"
)

// Poster schedules fn to run on the UI goroutine.
type Poster interface {
	Post(fn func()) bool
}

// Looper is a single goroutine event queue. Everything the controller does
// runs inside Run, so controller state needs no locks.
type Looper struct {
	queue chan func()

	mtx    sync.Mutex
	closed bool
}

func NewLooper(depth int) *Looper {
	if depth <= 0 {
		depth = 64
	}
	return &Looper{queue: make(chan func(), depth)}
}

// Post enqueues fn. It blocks while the queue is full and reports false once
// the looper has stopped.
func (l *Looper) Post(fn func()) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.closed {
		return false
	}
	l.queue <- fn
	return true
}

// Run executes posted functions in order until ctx is done. Functions still
// queued at that point are dropped.
func (l *Looper) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.stop()
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

func (l *Looper) stop() {
	// drain so a Post blocked on a full queue can take the lock
	go func() {
		for range l.queue {
		}
	}()
	l.mtx.Lock()
	l.closed = true
	close(l.queue)
	l.mtx.Unlock()
}

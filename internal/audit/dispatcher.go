package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards an event when the buffer is full. Otherwise Emit
	// waits for room until ctx is done.
	DropIfFull bool
}

// Dispatcher relays audit events to a Sink from a single background
// goroutine.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan Event
	stopped    chan struct{}

	// mu guards closed. Senders hold it for reading so Close cannot close
	// queue under them.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is
// false; every method is a no-op on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
		stopped:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit enqueues event. Events emitted after Close are discarded silently. A
// blocking Emit abandoned through ctx counts as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops intake and waits until every queued event reached the sink.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

// Dropped reports how many events never reached the queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

package goToken

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// auditQueue hands events to the sink on a single worker goroutine so token
// operations never wait on audit I/O unless Audit.DropIfFull is off.
type auditQueue struct {
	sink       AuditSink
	dropIfFull bool

	events   chan AuditEvent
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	dropped atomic.Uint64
}

// newAuditQueue returns nil when auditing is disabled. All methods accept a
// nil queue.
func newAuditQueue(cfg AuditConfig, sink AuditSink) *auditQueue {
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

	q := &auditQueue{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan AuditEvent, size),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *auditQueue) loop() {
	defer close(q.stopped)
	for {
		select {
		case event := <-q.events:
			q.deliver(event)
		case <-q.stop:
			for {
				select {
				case event := <-q.events:
					q.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the worker from a panicking sink; the event counts as dropped.
func (q *auditQueue) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			q.dropped.Add(1)
			log.Print("goToken: audit sink panicked, event dropped")
		}
	}()
	q.sink.Emit(context.Background(), event)
}

// Emit enqueues event. When the queue is full it either drops the event
// (DropIfFull) or waits for room, ctx cancellation or Close; an event that is
// not enqueued before ctx ends counts as dropped. Events emitted after Close
// are ignored.
func (q *auditQueue) Emit(ctx context.Context, event AuditEvent) {
	if q == nil {
		return
	}
	select {
	case <-q.stop:
		return
	default:
	}

	if q.dropIfFull {
		select {
		case q.events <- event:
		default:
			q.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.events <- event:
	case <-ctx.Done():
		q.dropped.Add(1)
	case <-q.stop:
	}
}

// Close flushes queued events to the sink and stops the worker. Safe to call
// more than once.
func (q *auditQueue) Close() {
	if q == nil {
		return
	}
	q.stopOnce.Do(func() { close(q.stop) })
	<-q.stopped
}

// Dropped returns the number of events that never reached the sink.
func (q *auditQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}

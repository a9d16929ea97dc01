package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned by Publish after Close.
	ErrBusClosed = errors.New("event bus closed")

	// ErrDropped is returned when the delivery buffer is full.
	ErrDropped = errors.New("event dropped: buffer full")
)

// DefaultBuffer is the delivery queue size used when none is given.
const DefaultBuffer = 256

// Handler observes delivered events. Handlers run on the bus goroutine and
// must not call back into Publish synchronously.
type Handler func(Event)

// Bus delivers events to subscribers on a background goroutine. Publish
// never blocks; when the buffer is full the event is dropped.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	closed   bool

	pending chan Event
	done    chan struct{}
}

// NewBus starts a bus with the given buffer size.
func NewBus(buffer int, logger *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		logger:   logger.Named("events"),
		handlers: make(map[int]Handler),
		pending:  make(chan Event, buffer),
		done:     make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

func (b *Bus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.pending <- e:
		return nil
	default:
		b.logger.Warn("event buffer full, dropping event",
			zap.String("kind", string(e.Kind)),
			zap.String("session_id", e.SessionID))
		return ErrDropped
	}
}

func (b *Bus) processLoop() {
	defer close(b.done)
	for e := range b.pending {
		b.mu.RLock()
		hs := make([]Handler, 0, len(b.handlers))
		for _, h := range b.handlers {
			hs = append(hs, h)
		}
		b.mu.RUnlock()

		for _, h := range hs {
			b.deliver(h, e)
		}
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", zap.String("kind", string(e.Kind)), zap.Any("panic", r))
		}
	}()
	h(e)
}

// Close stops accepting events, delivers what is queued and returns once
// the background goroutine exits.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.pending)
	b.mu.Unlock()
	<-b.done
}

package hub

import (
	"sync"

	"github.com/STARTUPinnovator/smartbin/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultQueueSize = 64

// Hub fans accepted telemetry updates out to connected observers.
//
// Publish snapshots the observer set under a read lock and enqueues per
// observer without ever blocking: a slow observer overflows its own queue
// (drop-oldest) and never delays ingestion or other observers. Per-observer
// FIFO order is preserved; there is no buffering or replay for observers
// that connect later.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*Subscriber
	queueSize int
	stopped   bool
	logger    *zap.Logger
}

// Subscriber is one connected observer. Updates are consumed from Events();
// Done() is closed when the subscriber leaves the hub (terminal).
type Subscriber struct {
	id     string
	events chan domain.Update
	done   chan struct{}
	hub    *Hub
	once   sync.Once
}

func New(queueSize int, logger *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		subs:      map[string]*Subscriber{},
		queueSize: queueSize,
		logger:    logger,
	}
}

// Subscribe admits a new observer into the broadcast set.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		id:     uuid.NewString(),
		events: make(chan domain.Update, h.queueSize),
		done:   make(chan struct{}),
		hub:    h,
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		s.once.Do(func() { close(s.done) })
		return s
	}
	h.subs[s.id] = s
	h.mu.Unlock()

	h.logger.Debug("Observer subscribed",
		zap.String("observer_id", s.id),
		zap.Int("observers", h.Count()),
	)
	return s
}

// Publish delivers an update to every observer connected at publish time.
// Never blocks and never fails; publishing to zero observers is a no-op.
func (h *Hub) Publish(update domain.Update) {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	for _, s := range snapshot {
		s.enqueue(update, h)
	}
}

// enqueue appends the update to the subscriber queue, dropping the oldest
// queued update when the queue is full.
func (s *Subscriber) enqueue(update domain.Update, h *Hub) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- update:
		return
	default:
	}

	// Queue full: make room by discarding the oldest pending update.
	select {
	case <-s.events:
		h.logger.Warn("Observer queue full, dropped oldest update",
			zap.String("observer_id", s.id),
		)
	default:
	}
	select {
	case s.events <- update:
	default:
	}
}

// Events returns the subscriber's update channel.
func (s *Subscriber) Events() <-chan domain.Update {
	return s.events
}

// Done is closed once the subscriber has been removed from the hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// ID returns the observer id (used in logs only).
func (s *Subscriber) ID() string {
	return s.id
}

// Close removes the subscriber from the hub. Safe to call more than once
// and from any goroutine; pending updates are discarded.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	delete(s.hub.subs, s.id)
	s.hub.mu.Unlock()

	s.once.Do(func() { close(s.done) })
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stop disconnects all observers and rejects new subscriptions.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = map[string]*Subscriber{}
	h.mu.Unlock()

	for _, s := range subs {
		s.once.Do(func() { close(s.done) })
	}
}

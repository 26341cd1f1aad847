package events

import (
	"context"
	"errors"
	"sync"

	"servicehub/internal/metrics"

	"github.com/rs/zerolog"
)

const DefaultBuffer = 64

var (
	ErrAlreadyStarted = errors.New("subscription already started")
	ErrStopped        = errors.New("subscription stopped")
)

// Handler receives changes in publish order.
type Handler func(change Change)

// Hub fans changes out to started subscriptions.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	logger *zerolog.Logger
}

func NewHub(buffer int, logger *zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe returns an idle subscription for collection. It receives nothing until Start.
// match restricts delivery to changes whose Fields contain every key/value pair;
// types restricts delivery to the given change types (all when empty).
func (h *Hub) Subscribe(collection string, match map[string]string, types ...ChangeType) *Subscription {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.mu.Unlock()

	m := make(map[string]string, len(match))
	for k, v := range match {
		m[k] = v
	}

	return &Subscription{
		hub:        h,
		id:         id,
		collection: collection,
		match:      m,
		types:      types,
		ch:         make(chan Change, h.buffer),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
}

// Publish delivers change to every matching started subscription without blocking.
// A subscription whose buffer is full drops the change.
func (h *Hub) Publish(change Change) {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if s.matches(change) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.offer(change) {
			metrics.IncDroppedChange(change.Collection)
			h.logger.Warn().
				Str("collection", change.Collection).
				Str("key", change.Key).
				Uint64("subscription", s.id).
				Msg("subscription buffer full, change dropped")
		}
	}
}

// Active returns the number of started subscriptions.
func (h *Hub) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add(s *Subscription) {
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Subscription is an explicit handle on a filtered change stream.
type Subscription struct {
	hub        *Hub
	id         uint64
	collection string
	match      map[string]string
	types      []ChangeType

	ch     chan Change
	done   chan struct{}
	exited chan struct{}

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

// Start registers the subscription and delivers changes to handler on a dedicated goroutine
// until Stop is called or ctx is done. Handler must not call Stop.
func (s *Subscription) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.hub.add(s)
	go s.run(ctx, handler)
	return nil
}

func (s *Subscription) run(ctx context.Context, handler Handler) {
	defer close(s.exited)
	defer s.hub.remove(s.id)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case change := <-s.ch:
			handler(change)
		}
	}
}

// Stop unregisters the subscription and waits for the delivery goroutine to exit.
// Safe to call more than once and before Start.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	s.hub.remove(s.id)
	if started {
		<-s.exited
	}
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.exited
}

func (s *Subscription) matches(change Change) bool {
	if change.Collection != s.collection {
		return false
	}
	if len(s.types) > 0 {
		ok := false
		for _, t := range s.types {
			if t == change.Type {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for k, v := range s.match {
		if change.Fields[k] != v {
			return false
		}
	}
	return true
}

func (s *Subscription) offer(change Change) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.ch <- change:
		return true
	default:
		return false
	}
}

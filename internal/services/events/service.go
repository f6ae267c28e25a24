package events

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

const subscriberBuffer = 32

// Service fans pipeline and workflow events out to subscribers. A slow
// subscriber drops events instead of blocking publishers.
type Service struct {
	mu          sync.RWMutex
	subscribers map[int]chan interfaces.Event
	nextID      int
	logger      arbor.ILogger
}

// NewService creates an event service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[int]chan interfaces.Event),
		logger:      logger,
	}
}

// Publish delivers an event to every subscriber without blocking.
func (s *Service) Publish(event interfaces.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// subscriber backlog full, drop
		}
	}
}

// Subscribe returns a channel of events and a cancel func that closes
// it.
func (s *Service) Subscribe() (<-chan interfaces.Event, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan interfaces.Event, subscriberBuffer)
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

var _ interfaces.EventService = (*Service)(nil)

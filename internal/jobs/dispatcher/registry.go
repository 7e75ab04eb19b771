package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
)

// Handler reacts to one delivered event. Delivery is at least once, so
// handlers must tolerate seeing the same event again; every stateful handler
// here re-reads current state instead of trusting the payload.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev *domain.DomainEvent) error
}

// Registry maps an event type to its ordered handler chain. Registration
// happens once during startup; lookups run concurrently from the workers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.EventType][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.EventType][]Handler)}
}

// Register appends h to the chain for eventType. Handlers run in
// registration order for each delivered event.
func (r *Registry) Register(eventType domain.EventType, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	if h.Name() == "" {
		return fmt.Errorf("handler Name() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], h)
	return nil
}

// Get returns the handler chain for eventType, or an empty slice when no
// handler cares about it.
func (r *Registry) Get(eventType domain.EventType) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[eventType]
}

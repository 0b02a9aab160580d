package mission

import (
	"sync"
	"sync/atomic"
	"time"
)

// StatusEvent is the push-only progress record the core emits toward the
// presentation layer on every applied state transition.
type StatusEvent struct {
	EntityType string         `json:"entity_type"` // "mission", "task", "tool_call", "worker", "message"
	EntityID   string         `json:"entity_id"`
	MissionID  string         `json:"mission_id"`
	NewStatus  string         `json:"new_status"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Emitter fans StatusEvents out to subscribers. Emit never blocks a state
// transition: a subscriber that cannot keep up loses events, and the loss is
// counted rather than hidden.
type Emitter struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan StatusEvent
	dropped atomic.Uint64
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[int]chan StatusEvent)}
}

// Subscribe returns a buffered event channel and a cancel function. The
// channel is closed on cancel.
func (e *Emitter) Subscribe(buffer int) (<-chan StatusEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	ch := make(chan StatusEvent, buffer)
	e.subs[id] = ch
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// Emit delivers the event to every subscriber without blocking.
func (e *Emitter) Emit(ev StatusEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.dropped.Add(1)
		}
	}
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Package notify fans out fire-and-forget events describing tool
// execution and notable business results. Publishing never blocks the
// caller; slow subscribers miss events.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies an event.
type EventType string

const (
	EventToolStart   EventType = "tool_start"
	EventToolSuccess EventType = "tool_success"
	EventToolError   EventType = "tool_error"

	EventLargeTAM      EventType = "large_tam"
	EventHighCAGR      EventType = "high_cagr"
	EventLowConfidence EventType = "low_confidence"
)

// Event is a single notification.
type Event struct {
	ID       string         `json:"id"`
	Type     EventType      `json:"type"`
	Tool     string         `json:"tool,omitempty"`
	At       time.Time      `json:"at"`
	Duration time.Duration  `json:"duration,omitempty"`
	Error    string         `json:"error,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Bus fans out events to subscribers in real time.
type Bus struct {
	mu   sync.RWMutex
	subs map[<-chan Event]chan Event
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[<-chan Event]chan Event)}
}

// Subscribe registers a listener and returns a receive-only channel.
// The caller must call Unsubscribe when done.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	if send, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(send)
	}
	b.mu.Unlock()
}

// Publish sends the event to all subscribers without blocking. The event
// id and timestamp are filled in when absent.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// LogSink subscribes to the bus and logs every event until the channel
// closes. Run it in its own goroutine.
func LogSink(bus *Bus) {
	ch := bus.Subscribe()
	for e := range ch {
		attrs := []any{"type", string(e.Type), "id", e.ID}
		if e.Tool != "" {
			attrs = append(attrs, "tool", e.Tool)
		}
		if e.Duration > 0 {
			attrs = append(attrs, "duration_ms", e.Duration.Milliseconds())
		}
		if e.Error != "" {
			attrs = append(attrs, "error", e.Error)
			slog.Warn("notification", attrs...)
			continue
		}
		slog.Info("notification", attrs...)
	}
}

// Package events is an in-process bus for install and uninstall pipeline
// lifecycle events. Subscribers such as the history log observe pipelines
// without the orchestrator knowing about them.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/pluginctl/internal/logging"
)

// Event names.
const (
	InstallStarted     = "install_started"
	InstallCompleted   = "install_completed"
	InstallFailed      = "install_failed"
	UninstallStarted   = "uninstall_started"
	UninstallCompleted = "uninstall_completed"
	UninstallFailed    = "uninstall_failed"
)

// AllEvents lists every event name.
var AllEvents = []string{
	InstallStarted,
	InstallCompleted,
	InstallFailed,
	UninstallStarted,
	UninstallCompleted,
	UninstallFailed,
}

// Payload describes one pipeline transition. RunID is shared by the started
// event and the terminal event of the same run.
type Payload struct {
	Event     string    `json:"event"`
	RunID     string    `json:"runId"`
	Operation string    `json:"operation"`
	Plugin    string    `json:"plugin"`
	PluginID  string    `json:"pluginId,omitempty"`
	Version   string    `json:"version,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Terminal reports whether the event ends a run.
func (p Payload) Terminal() bool {
	switch p.Event {
	case InstallCompleted, InstallFailed, UninstallCompleted, UninstallFailed:
		return true
	}
	return false
}

// Succeeded reports whether the event is a successful terminal event.
func (p Payload) Succeeded() bool {
	return p.Event == InstallCompleted || p.Event == UninstallCompleted
}

// Handler handles an event. Returning an error logs the failure but does not
// stop other handlers or the pipeline.
type Handler func(ctx context.Context, p Payload) error

// Bus dispatches events to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewBus creates an event bus.
func NewBus(log *logging.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("events"),
	}
}

// On registers a handler for one event.
func (b *Bus) On(event, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], namedHandler{name: name, handler: handler})
	b.log.Debug().Str("event", event).Str("handler", name).Msg("subscribed")
}

// OnAll registers a handler for every event.
func (b *Bus) OnAll(name string, handler Handler) {
	for _, event := range AllEvents {
		b.On(event, name, handler)
	}
}

// Off removes all handlers with the given name from the event.
func (b *Bus) Off(event, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	b.handlers[event] = filtered
}

// Emit delivers p to the handlers of p.Event synchronously, in registration
// order. A zero At is stamped with the current time.
func (b *Bus) Emit(ctx context.Context, p Payload) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]namedHandler, len(b.handlers[p.Event]))
	copy(handlers, b.handlers[p.Event])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}
	if p.At.IsZero() {
		p.At = time.Now().UTC()
	}

	for _, h := range handlers {
		if err := h.handler(ctx, p); err != nil {
			b.log.Warn().
				Err(err).
				Str("event", p.Event).
				Str("handler", h.name).
				Msg("event handler error")
		}
	}
}

// Count returns the number of handlers registered for an event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Events returns the events that have at least one handler.
func (b *Bus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := make([]string, 0, len(b.handlers))
	for event, handlers := range b.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	return events
}

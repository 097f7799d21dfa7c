// Package events defines the fire-and-forget activity sink consumed by UI
// layers. The pipeline emits labeled progress events and never reads them
// back.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event is one labeled activity entry.
type Event struct {
	Step        string
	Description string
	At          time.Time
}

// Sink consumes pipeline activity events. Implementations must not block
// the caller for long and must tolerate concurrent emission.
type Sink interface {
	Emit(step, description string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(string, string) {}

// SlogSink logs events at debug level.
type SlogSink struct {
	Log *slog.Logger
}

func (s SlogSink) Emit(step, description string) {
	if s.Log != nil {
		s.Log.Debug("agent activity", "step", step, "description", description)
	}
}

// Collector retains events in memory. Used by tests and the CLI progress
// display.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Emit(step, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Step: step, Description: description, At: time.Now()})
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

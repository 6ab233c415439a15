// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a real-time update about one node of the schedule tree.
type Event struct {
	Path      []string  // Labels from the root to the node, e.g. ["CI", "build-all", "app:build"]
	Type      EventType // What happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When it happened
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a node has begun execution.
	EventStarted EventType = iota
	// EventOutput indicates a new log line from a running target.
	EventOutput
	// EventCompleted indicates successful completion.
	EventCompleted
	// EventFailed indicates the node failed.
	EventFailed
	// EventSkipped indicates the node was never started.
	EventSkipped
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events are expected for the node.
func (et EventType) Terminal() bool {
	return et == EventCompleted || et == EventFailed || et == EventSkipped
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventOutput
	OutputLine string
	Level      string

	// For EventFailed and EventSkipped
	Error error
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends a progress event. Implementations must not block.
	Report(event Event)
	// Close signals that no more events will be sent.
	Close()
}

// Listener receives progress events.
type Listener interface {
	OnEvent(event Event)
}

// NullReporter drops every event.
type NullReporter struct{}

// Report does nothing.
func (NullReporter) Report(Event) {}

// Close does nothing.
func (NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return NullReporter{}
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
		terminal  bool
	}{
		{EventStarted, "started", false},
		{EventOutput, "output", false},
		{EventCompleted, "completed", true},
		{EventFailed, "failed", true},
		{EventSkipped, "skipped", true},
		{EventType(999), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eventType.String())
			assert.Equal(t, tt.terminal, tt.eventType.Terminal())
		})
	}
}

func TestNullReporter(t *testing.T) {
	reporter := NewNullReporter()
	require.NotNil(t, reporter)

	reporter.Report(Event{Path: []string{"test"}, Type: EventStarted})
	reporter.Close()
}

func TestChannelReporter(t *testing.T) {
	reporter := NewChannelReporter(context.Background(), 10)

	event := Event{
		Path:      []string{"ci", "app:build"},
		Type:      EventStarted,
		Message:   "started",
		Timestamp: time.Now(),
	}
	reporter.Report(event)

	select {
	case got := <-reporter.Events():
		assert.Equal(t, event.Path, got.Path)
		assert.Equal(t, event.Type, got.Type)
	case <-time.After(time.Second):
		t.Fatal("event not received")
	}

	reporter.Close()
	reporter.Close()

	// dropped, must not panic
	reporter.Report(Event{Type: EventCompleted})

	_, ok := <-reporter.Events()
	assert.False(t, ok)
	assert.Error(t, reporter.Context().Err())
}

func TestChannelReporter_BufferOverflowDoesNotBlock(t *testing.T) {
	reporter := NewChannelReporter(context.Background(), 1)
	defer reporter.Close()

	done := make(chan struct{})

	go func() {
		reporter.Report(Event{Message: "1"})
		reporter.Report(Event{Message: "2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report blocked")
	}
}

type recordingListener struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordingListener) OnEvent(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
}

func TestChannelReporter_Listen(t *testing.T) {
	reporter := NewChannelReporter(context.Background(), 10)
	listener := &recordingListener{}

	events := []Event{
		{Type: EventStarted, Message: "a"},
		{Type: EventOutput, Message: "b"},
		{Type: EventCompleted, Message: "c"},
	}
	for _, e := range events {
		reporter.Report(e)
	}

	reporter.Listen(listener)
	reporter.Close()

	require.Len(t, listener.events, len(events))

	for i, e := range events {
		assert.Equal(t, e.Message, listener.events[i].Message)
	}
}

func TestChannelReporter_ConcurrentReportAndClose(t *testing.T) {
	reporter := NewChannelReporter(context.Background(), 4)
	reporter.Listen(&recordingListener{})

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				reporter.Report(Event{Type: EventOutput})
			}
		}()
	}

	reporter.Close()
	wg.Wait()
}

func TestWithPrefix(t *testing.T) {
	assert.Nil(t, WithPrefix(nil, "x"))

	reporter := NewChannelReporter(context.Background(), 4)
	defer reporter.Close()

	child := WithPrefix(WithPrefix(reporter, "ci"), "build")
	child.Report(Event{Path: []string{"app:build"}, Type: EventStarted})
	child.Report(Event{Type: EventStarted})
	child.Close()

	assert.Equal(t, []string{"ci", "build", "app:build"}, (<-reporter.Events()).Path)
	assert.Equal(t, []string{"ci", "build"}, (<-reporter.Events()).Path)
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeContext struct {
	current  *target.ID
	targets  []target.ID
	builders []target.Transient
	panicMsg string
	// started, when set, makes ScheduleBuilder signal it and block until ctx ends.
	started chan struct{}
}

var _ buildctx.Context = (*fakeContext)(nil)

func (f *fakeContext) ScheduleTarget(ctx context.Context, id target.ID, _ map[string]any) protocol.Outcome {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}

	f.targets = append(f.targets, id)
	ctxlog.Info(ctx, "building", "target", id.String())

	if id.Target == "bad" {
		return protocol.Failed(errors.New("bad target"))
	}

	return protocol.Succeeded()
}

func (f *fakeContext) ScheduleBuilder(ctx context.Context, t target.Transient, _ *target.ID) protocol.Outcome {
	f.builders = append(f.builders, t)
	ctxlog.Warn(ctx, "transient", "builder", t.Builder)

	if f.started != nil {
		close(f.started)
		<-ctx.Done()

		return protocol.Failed(ctx.Err())
	}

	return protocol.Succeeded()
}

func (f *fakeContext) CurrentTarget() *target.ID { return f.current }

type collector struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (c *collector) send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.msgs = append(c.msgs, m)

	return nil
}

func withLevel(t *testing.T, l slog.Level) {
	t.Helper()

	old := ctxlog.LevelVar.Level()
	ctxlog.LevelVar.Set(l)
	t.Cleanup(func() { ctxlog.LevelVar.Set(old) })
}

func TestHandle_TargetLogsThenOutcome(t *testing.T) {
	withLevel(t, slog.LevelInfo)

	fc := &fakeContext{current: &target.ID{Project: "app", Target: "x"}}
	c := &collector{}

	Handle(context.Background(), fc, protocol.NewRunTarget(4, "build", nil), c.send)

	require.Len(t, c.msgs, 2)
	assert.Equal(t, protocol.TypeLog, c.msgs[0].Type)
	assert.Equal(t, "building", c.msgs[0].Log.Message)
	assert.Equal(t, "app:build", c.msgs[0].Log.Attrs["target"])
	assert.Equal(t, protocol.TypeOutcome, c.msgs[1].Type)
	assert.True(t, c.msgs[1].Outcome.Success)
	assert.Equal(t, uint64(4), c.msgs[1].ID)
	assert.Equal(t, []target.ID{{Project: "app", Target: "build"}}, fc.targets)
}

func TestHandle_Failures(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeContext
		req  protocol.Message
		want string
	}{
		{name: "missing context", fc: &fakeContext{}, req: protocol.NewRunTarget(1, "build", nil), want: "current target"},
		{name: "invalid id", fc: &fakeContext{}, req: protocol.NewRunTarget(1, "a:b:c:d", nil), want: "invalid target specifier"},
		{name: "target fails", fc: &fakeContext{}, req: protocol.NewRunTarget(1, "app:bad", nil), want: "bad target"},
		{name: "panic", fc: &fakeContext{panicMsg: "oops"}, req: protocol.NewRunTarget(1, "app:build", nil), want: "worker panic: oops"},
		{name: "not a request", fc: &fakeContext{}, req: protocol.NewOutcome(1, protocol.Succeeded()), want: "unexpected protocol message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			Handle(context.Background(), tt.fc, tt.req, c.send)

			require.NotEmpty(t, c.msgs)
			out := c.msgs[len(c.msgs)-1].Outcome
			require.NotNil(t, out)
			assert.False(t, out.Success)
			assert.Contains(t, out.Error, tt.want)
		})
	}
}

func TestHandle_ForwardsTaskOutputAtEveryLevel(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		want  []string
	}{
		{name: "default warn", level: slog.LevelWarn, want: []string{"output", "problem"}},
		{name: "error", level: slog.LevelError, want: []string{"output", "problem"}},
		{name: "debug", level: slog.LevelDebug, want: []string{"detail", "output", "problem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLevel(t, tt.level)

			bc := &loggingContext{}
			c := &collector{}

			Handle(context.Background(), bc, protocol.NewRunTarget(1, "app:build", nil), c.send)

			var got []string

			for _, m := range c.msgs {
				if m.Type == protocol.TypeLog {
					got = append(got, m.Log.Message)
				}
			}

			assert.Equal(t, tt.want, got)
			assert.True(t, c.msgs[len(c.msgs)-1].Outcome.Success)
		})
	}
}

type loggingContext struct{}

func (loggingContext) ScheduleTarget(ctx context.Context, _ target.ID, _ map[string]any) protocol.Outcome {
	ctxlog.Debug(ctx, "detail")
	ctxlog.Info(ctx, "output")
	ctxlog.Warn(ctx, "problem")

	return protocol.Succeeded()
}

func (loggingContext) ScheduleBuilder(context.Context, target.Transient, *target.ID) protocol.Outcome {
	return protocol.Succeeded()
}

func (loggingContext) CurrentTarget() *target.ID { return nil }

func TestServe_PeerCloseCancelsRunningRequest(t *testing.T) {
	ctx := context.Background()
	parent, child := protocol.NewPortPair()
	fc := &fakeContext{started: make(chan struct{})}

	done := make(chan error, 1)

	go func() { done <- Serve(ctx, child, fc) }()

	require.NoError(t, parent.Send(ctx, protocol.NewRunBuilder(3, target.Transient{Builder: "slow", Project: "app"}, nil)))

	m, err := parent.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeLog, m.Type)
	<-fc.started

	require.NoError(t, parent.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve kept running the request after its peer closed")
	}
}

func TestServe_OverPorts(t *testing.T) {
	withLevel(t, slog.LevelWarn)

	ctx := context.Background()
	parent, child := protocol.NewPortPair()
	fc := &fakeContext{}

	done := make(chan error, 1)

	go func() { done <- Serve(ctx, child, fc) }()

	require.NoError(t, parent.Send(ctx, protocol.NewRunBuilder(9, target.Transient{Builder: "noop", Project: "app"}, nil)))

	var types []protocol.MessageType

	for {
		m, err := parent.Recv(ctx)
		require.NoError(t, err)

		types = append(types, m.Type)
		if m.Type == protocol.TypeOutcome {
			break
		}
	}

	assert.Equal(t, []protocol.MessageType{protocol.TypeLog, protocol.TypeOutcome}, types)

	require.NoError(t, parent.Close())
	require.NoError(t, <-done)
	assert.Equal(t, []target.Transient{{Builder: "noop", Project: "app"}}, fc.builders)
}

func TestServe_UnexpectedMessage(t *testing.T) {
	ctx := context.Background()
	parent, child := protocol.NewPortPair()

	done := make(chan error, 1)

	go func() { done <- Serve(ctx, child, &fakeContext{}) }()

	require.NoError(t, parent.Send(ctx, protocol.NewOutcome(1, protocol.Succeeded())))
	require.ErrorIs(t, <-done, protocol.ErrUnexpectedMessage)

	_, err := parent.Recv(ctx)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, parent.Close())
}

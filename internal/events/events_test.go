package events

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *Bus {
	return NewBus(logging.New(nil, "silent"))
}

func TestBus_On_And_Emit(t *testing.T) {
	b := testBus()

	var got Payload
	b.On(InstallStarted, "test", func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	b.Emit(context.Background(), Payload{Event: InstallStarted, Plugin: "acme/widgets", RunID: "r1"})
	assert.Equal(t, "acme/widgets", got.Plugin)
	assert.Equal(t, "r1", got.RunID)
	assert.False(t, got.At.IsZero())
}

func TestBus_Emit_Order(t *testing.T) {
	b := testBus()

	var order []string
	b.On(InstallCompleted, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	b.On(InstallCompleted, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	b.Emit(context.Background(), Payload{Event: InstallCompleted})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_Emit_HandlerError(t *testing.T) {
	b := testBus()

	var secondCalled bool
	b.On(InstallFailed, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	b.On(InstallFailed, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	b.Emit(context.Background(), Payload{Event: InstallFailed})
	assert.True(t, secondCalled)
}

func TestBus_Emit_NoHandlers(t *testing.T) {
	testBus().Emit(context.Background(), Payload{Event: UninstallStarted})

	var nilBus *Bus
	nilBus.Emit(context.Background(), Payload{Event: UninstallStarted})
}

func TestBus_OnAll(t *testing.T) {
	b := testBus()

	var seen []string
	b.OnAll("recorder", func(_ context.Context, p Payload) error {
		seen = append(seen, p.Event)
		return nil
	})
	for _, e := range AllEvents {
		b.Emit(context.Background(), Payload{Event: e})
	}
	assert.Equal(t, AllEvents, seen)
	assert.Len(t, b.Events(), len(AllEvents))
}

func TestBus_Off(t *testing.T) {
	b := testBus()

	var calls int
	b.On(UninstallCompleted, "remove-me", func(_ context.Context, _ Payload) error {
		calls++
		return nil
	})
	b.On(UninstallCompleted, "keep-me", func(_ context.Context, _ Payload) error { return nil })

	b.Emit(context.Background(), Payload{Event: UninstallCompleted})
	b.Off(UninstallCompleted, "remove-me")
	b.Emit(context.Background(), Payload{Event: UninstallCompleted})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, b.Count(UninstallCompleted))
}

func TestPayload_Terminal(t *testing.T) {
	assert.False(t, Payload{Event: InstallStarted}.Terminal())
	assert.True(t, Payload{Event: InstallFailed}.Terminal())
	assert.True(t, Payload{Event: UninstallCompleted}.Succeeded())
	assert.False(t, Payload{Event: UninstallFailed}.Succeeded())
}

func TestAllEvents_NotEmpty(t *testing.T) {
	require.NotEmpty(t, AllEvents)
	assert.Contains(t, AllEvents, InstallStarted)
	assert.Contains(t, AllEvents, UninstallFailed)
}

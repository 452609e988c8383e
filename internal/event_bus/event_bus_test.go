package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should call handlers in subscription order", func(t *testing.T) {
		bus := NewEventBus()
		var calls []string
		for _, name := range []string{"first", "second", "third"} {
			bus.Subscribe(OnboardingCompleted, func(Event) error {
				calls = append(calls, name)
				return nil
			})
		}

		err := bus.Publish(NewEvent(context.Background(), OnboardingCompleted, Completed{UserId: "u1"}))

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, calls)
	})

	t.Run("should deliver typed payloads only", func(t *testing.T) {
		bus := NewEventBus()
		var received []StepCompleted
		SubscribeTyped(bus, OnboardingStepCompleted, func(e EventT[StepCompleted]) error {
			received = append(received, e.Data)
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), OnboardingStepCompleted, StepCompleted{UserId: "u1", Step: 2})))
		require.NoError(t, bus.Publish(NewEvent(context.Background(), OnboardingStepCompleted, "not a step")))

		assert.Equal(t, []StepCompleted{{UserId: "u1", Step: 2}}, received)
	})

	t.Run("should collect handler errors and panics", func(t *testing.T) {
		bus := NewEventBus()
		boom := errors.New("boom")
		called := false
		bus.Subscribe(OnboardingReset, func(Event) error { return boom })
		bus.Subscribe(OnboardingReset, func(Event) error { panic("kaboom") })
		bus.Subscribe(OnboardingReset, func(Event) error {
			called = true
			return nil
		})

		err := bus.Publish(NewEvent(context.Background(), OnboardingReset, Reset{UserId: "u1"}))

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "kaboom")
		assert.True(t, called)
	})

	t.Run("should stop when unsubscribed", func(t *testing.T) {
		bus := NewEventBus()
		count := 0
		unsubscribe := bus.Subscribe(OnboardingCompleted, func(Event) error {
			count++
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), OnboardingCompleted, Completed{})))
		unsubscribe()
		require.NoError(t, bus.Publish(NewEvent(context.Background(), OnboardingCompleted, Completed{})))

		assert.Equal(t, 1, count)
	})

	t.Run("should not publish with cancelled context", func(t *testing.T) {
		bus := NewEventBus()
		called := false
		bus.Subscribe(OnboardingCompleted, func(Event) error {
			called = true
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := bus.Publish(NewEvent(ctx, OnboardingCompleted, Completed{}))

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

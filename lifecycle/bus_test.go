package lifecycle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventConflictDetected, "payload")
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventConflictDetected, event.Type)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "payload", event.Payload)
}

func TestBus_PublishToAll(t *testing.T) {
	bus := NewBus(nil)

	var received []EventType
	bus.Subscribe(NewFunctionSubscriber(func(event Event) error {
		received = append(received, event.Type)
		return nil
	}))

	bus.Publish(NewEvent(EventPermissionChecked, nil))
	bus.Publish(NewEvent(EventConflictDetected, nil))

	assert.Equal(t, []EventType{EventPermissionChecked, EventConflictDetected}, received)
}

func TestBus_TypeFilter(t *testing.T) {
	bus := NewBus(nil)

	var received []EventType
	bus.Subscribe(NewFunctionSubscriber(func(event Event) error {
		received = append(received, event.Type)
		return nil
	}, EventConflictResolved, EventConflictEscalated))

	bus.Publish(NewEvent(EventPermissionChecked, nil))
	bus.Publish(NewEvent(EventConflictResolved, nil))
	bus.Publish(NewEvent(EventConflictEscalated, nil))

	assert.Equal(t, []EventType{EventConflictResolved, EventConflictEscalated}, received)
}

func TestBus_SubscriberErrorContained(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(NewFunctionSubscriber(func(Event) error {
		return fmt.Errorf("handler failed")
	}))
	var delivered bool
	bus.Subscribe(NewFunctionSubscriber(func(Event) error {
		delivered = true
		return nil
	}))

	// The failing subscriber must not block later subscribers.
	bus.Publish(NewEvent(EventPermissionChecked, nil))
	assert.True(t, delivered)
}

func TestBus_SubscriberPanicContained(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(NewFunctionSubscriber(func(Event) error {
		panic("handler panic")
	}))
	var delivered bool
	bus.Subscribe(NewFunctionSubscriber(func(Event) error {
		delivered = true
		return nil
	}))

	require.NotPanics(t, func() {
		bus.Publish(NewEvent(EventPermissionChecked, nil))
	})
	assert.True(t, delivered)
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus(nil)
	require.NotPanics(t, func() {
		bus.Publish(NewEvent(EventPermissionChecked, nil))
	})
}

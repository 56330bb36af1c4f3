package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher_DeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var created, closed int
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		created++
		assert.Equal(t, "t-1", e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		closed++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-1"}))
	assert.Equal(t, 1, created)
	assert.Zero(t, closed, "only matching subscribers fire")
}

func TestInMemoryDispatcher_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()

	var second bool
	d.Subscribe(EventTicketCaptured, func(context.Context, Event) error {
		return errors.New("webhook down")
	})
	d.Subscribe(EventTicketCaptured, func(context.Context, Event) error {
		second = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCaptured}))
	assert.True(t, second)
}

func TestInMemoryDispatcher_NoSubscribersIsFine(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}))
}

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("handlers fire in subscription order for their type only", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher(zap.NewNop())

		var seen []string
		dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
			seen = append(seen, "first:"+e.TicketID)
			return nil
		})
		dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
			seen = append(seen, "second:"+e.TicketID)
			return nil
		})
		dispatcher.Subscribe(EventSLABreached, func(_ context.Context, _ Event) error {
			seen = append(seen, "wrong type")
			return nil
		})

		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTicketCreated, TicketID: "ticket-1"}))
		assert.Equal(t, []string{"first:ticket-1", "second:ticket-1"}, seen)
	})

	t.Run("handler errors are swallowed and later handlers still run", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher(nil)

		ran := false
		dispatcher.Subscribe(EventTicketRouted, func(_ context.Context, _ Event) error {
			return errors.New("handler blew up")
		})
		dispatcher.Subscribe(EventTicketRouted, func(_ context.Context, _ Event) error {
			ran = true
			return nil
		})

		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTicketRouted, TicketID: "ticket-1"}))
		assert.True(t, ran)
	})

	t.Run("publishing with no subscribers is a no-op", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher(zap.NewNop())
		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTicketAssigned, TicketID: "ticket-1"}))
	})
}

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishOrderAndUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	var got []string

	first := bus.Subscribe(func(e Event) { got = append(got, "first:"+string(e.Kind)) })
	bus.Subscribe(func(e Event) { got = append(got, "second:"+string(e.Kind)) })

	bus.Publish(Event{Kind: TransactionUpdated})
	bus.Unsubscribe(first)
	bus.Unsubscribe(first)
	bus.Publish(Event{Kind: WithdrawalClaimed})

	assert.Equal(t, []string{
		"first:transaction-updated",
		"second:transaction-updated",
		"second:withdrawal-claimed",
	}, got)
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	delivered := false

	bus.Subscribe(func(e Event) { panic("boom") })
	bus.Subscribe(func(e Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(Event{Kind: WithdrawalRegistered}) })
	assert.True(t, delivered)
}

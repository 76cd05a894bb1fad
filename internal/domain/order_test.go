package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusSuspended, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusConfirmed, OrderStatusReadyForPickup, true},
		{OrderStatusConfirmed, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusPickedUp, false},
		{OrderStatusReadyForPickup, OrderStatusPickedUp, true},
		{OrderStatusReadyForPickup, OrderStatusDelivered, false},
		{OrderStatusSuspended, OrderStatusResumed, true},
		{OrderStatusSuspended, OrderStatusCancelled, true},
		{OrderStatusSuspended, OrderStatusConfirmed, false},
		{OrderStatusResumed, OrderStatusConfirmed, true},
		{OrderStatusResumed, OrderStatusShipped, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusPickedUp, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusPickedUp.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())

	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusSuspended.Terminal())
	assert.False(t, OrderStatusResumed.Terminal())
}

func TestOrderStatusAdministrative(t *testing.T) {
	assert.True(t, OrderStatusSuspended.Administrative())
	assert.True(t, OrderStatusResumed.Administrative())
	assert.False(t, OrderStatusCancelled.Administrative())
	assert.False(t, OrderStatusConfirmed.Administrative())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("ready_for_pickup")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusReadyForPickup, status)

	_, err = ParseOrderStatus("exploded")
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, RuleInvalidStatusTransition, validationErr.Rule)
}

func TestShouldArchive(t *testing.T) {
	now := time.Now()

	fresh := &Order{Status: OrderStatusDelivered, UpdatedAt: now.Add(-time.Hour)}
	assert.False(t, ShouldArchive(fresh, now), "terminal but inside the grace window")

	expired := &Order{Status: OrderStatusDelivered, UpdatedAt: now.Add(-ArchiveAfter - time.Minute)}
	assert.True(t, ShouldArchive(expired, now))

	active := &Order{Status: OrderStatusConfirmed, UpdatedAt: now.Add(-48 * time.Hour)}
	assert.False(t, ShouldArchive(active, now), "non-terminal orders never auto-archive")

	already := &Order{Status: OrderStatusCancelled, Archived: true, UpdatedAt: now.Add(-48 * time.Hour)}
	assert.False(t, ShouldArchive(already, now))
}

package services

import (
	"testing"
	"time"

	"mythmanga/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.CheckoutState }{
		{models.StateIdle, models.StateMethodSelected},
		{models.StateMethodSelected, models.StateSubmitting},
		{models.StateSubmitting, models.StatePersisting},
		{models.StateSubmitting, models.StateCreatingRemoteOrder},
		{models.StateCreatingRemoteOrder, models.StateAwaitingGatewayCallback},
		{models.StateAwaitingGatewayCallback, models.StateVerifying},
		{models.StateAwaitingGatewayCallback, models.StateCancelled},
		{models.StateVerifying, models.StatePersisting},
		{models.StatePersisting, models.StateDone},
		{models.StatePersisting, models.StateFailed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	rejected := []struct{ from, to models.CheckoutState }{
		{models.StateIdle, models.StateDone},
		{models.StateSubmitting, models.StateDone},
		{models.StateAwaitingGatewayCallback, models.StatePersisting},
		{models.StateVerifying, models.StateDone},
		{models.StateDone, models.StateFailed},
		{models.StateFailed, models.StateAwaitingGatewayCallback},
		{models.StateCancelled, models.StateVerifying},
	}
	for _, tc := range rejected {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []models.CheckoutState{models.StateDone, models.StateFailed, models.StateCancelled} {
		assert.True(t, s.Terminal())
		assert.Empty(t, checkoutTransitions[s])
	}
}

func TestTransition(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	attempt := &models.CheckoutAttempt{State: models.StateIdle, UpdatedAt: created}

	require.NoError(t, transition(attempt, models.StateMethodSelected, created.Add(time.Second)))
	assert.Equal(t, models.StateMethodSelected, attempt.State)
	assert.Equal(t, created.Add(time.Second), attempt.UpdatedAt)

	err := transition(attempt, models.StateDone, created.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StateMethodSelected, attempt.State)
	assert.Equal(t, created.Add(time.Second), attempt.UpdatedAt)
}

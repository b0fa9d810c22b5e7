package services

import (
	"errors"
	"fmt"
	"time"

	"mythmanga/internal/models"
)

// ErrInvalidTransition is returned when an attempt is asked to skip or repeat a step.
var ErrInvalidTransition = errors.New("checkout: invalid state transition")

var checkoutTransitions = map[models.CheckoutState][]models.CheckoutState{
	models.StateIdle:           {models.StateMethodSelected},
	models.StateMethodSelected: {models.StateSubmitting},
	models.StateSubmitting: {
		models.StatePersisting,
		models.StateCreatingRemoteOrder,
	},
	models.StateCreatingRemoteOrder: {
		models.StateAwaitingGatewayCallback,
		models.StateFailed,
	},
	models.StateAwaitingGatewayCallback: {
		models.StateVerifying,
		models.StateFailed,
		models.StateCancelled,
	},
	models.StateVerifying: {
		models.StatePersisting,
		models.StateFailed,
	},
	models.StatePersisting: {
		models.StateDone,
		models.StateFailed,
	},
}

// CanTransition reports whether from -> to is an allowed step.
func CanTransition(from, to models.CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transition(attempt *models.CheckoutAttempt, to models.CheckoutState, now time.Time) error {
	if !CanTransition(attempt.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, attempt.State, to)
	}
	attempt.State = to
	attempt.UpdatedAt = now
	return nil
}

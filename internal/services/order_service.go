package services

import (
	"context"
	"errors"
	"fmt"

	"mythmanga/internal/logger"
	"mythmanga/internal/models"
	"mythmanga/internal/repositories"

	"go.uber.org/zap"
)

// ErrOrderNotSaved is returned when the record store rejects an order insert.
var ErrOrderNotSaved = errors.New("order not saved to the record store")

// History sources.
const (
	HistorySourceRemote = "remote"
	HistorySourceLocal  = "local"
)

// OrderHistory is an owner's order list and where it was read from.
type OrderHistory struct {
	Source string              `json:"source"`
	Orders []models.LocalOrder `json:"orders"`
}

// ReconcileReport lists local orders that the record store does not know about.
// Skipped holds entries whose own insert failed at checkout; those checkouts
// ended FAILED and are never re-inserted.
type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Missing  []string `json:"missing"`
	Skipped  []string `json:"skipped"`
	Repaired []string `json:"repaired"`
	Failed   []string `json:"failed"`
}

// OrderService records finalized orders and reads order history.
type OrderService struct {
	orders repositories.OrderRepository
	local  repositories.LocalOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderRepository, local repositories.LocalOrderStore) *OrderService {
	return &OrderService{
		orders: orders,
		local:  local,
	}
}

// Persist inserts the order into the record store and appends it to the
// client's local list. The local append happens whatever the insert outcome and
// its failures are only logged; an insert failure is returned.
func (s *OrderService) Persist(ctx context.Context, clientID string, order *models.Order) error {
	remoteErr := s.orders.Create(ctx, order)

	entry := models.NewLocalOrder(*order)
	entry.RemoteStatus = models.RemoteStatusSaved
	if remoteErr != nil {
		entry.RemoteStatus = models.RemoteStatusFailed
	}
	if err := s.local.Append(ctx, clientID, entry); err != nil {
		logger.Get().Warn("Failed to append local order",
			zap.String("order_id", order.ID),
			zap.String("client_id", clientID),
			zap.Error(err),
		)
	}

	if remoteErr != nil {
		logger.Get().Error("Failed to insert order",
			zap.String("order_id", order.ID),
			zap.Error(remoteErr),
		)
		return fmt.Errorf("%w: %v", ErrOrderNotSaved, remoteErr)
	}
	return nil
}

// PaymentRecorded reports whether a stored order already carries the gateway
// payment id.
func (s *OrderService) PaymentRecorded(ctx context.Context, paymentID string) (bool, error) {
	_, err := s.orders.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, repositories.ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up payment %s: %w", paymentID, err)
	}
	return true, nil
}

// History reads the owner's orders from the record store by user_id, retrying
// by user_identifier when the identity is not a UUID. Guests, and callers whose
// remote reads fail, get the client's local list, newest first.
func (s *OrderService) History(ctx context.Context, identity, clientID string) (OrderHistory, error) {
	log := logger.Get().With(zap.String("client_id", clientID))

	if identity != "" {
		orders, err := s.orders.ListByOwner(ctx, repositories.OwnerColumnUserID, identity)
		if errors.Is(err, repositories.ErrIdentityMismatch) {
			log.Debug("Identity is not a UUID, retrying by user_identifier")
			orders, err = s.orders.ListByOwner(ctx, repositories.OwnerColumnUserIdentifier, identity)
		}
		if err == nil {
			history := OrderHistory{Source: HistorySourceRemote, Orders: make([]models.LocalOrder, 0, len(orders))}
			for _, o := range orders {
				history.Orders = append(history.Orders, models.NewLocalOrder(o))
			}
			return history, nil
		}
		log.Warn("Falling back to local order list", zap.Error(err))
	}

	if clientID == "" {
		return OrderHistory{Source: HistorySourceLocal, Orders: []models.LocalOrder{}}, nil
	}

	local, err := s.local.List(ctx, clientID)
	if err != nil {
		return OrderHistory{}, fmt.Errorf("failed to read local orders: %w", err)
	}
	for i, j := 0, len(local)-1; i < j; i, j = i+1, j-1 {
		local[i], local[j] = local[j], local[i]
	}
	return OrderHistory{Source: HistorySourceLocal, Orders: local}, nil
}

// Reconcile compares the client's local list with the record store. With
// repair set, missing orders are inserted unless their checkout insert failed.
func (s *OrderService) Reconcile(ctx context.Context, clientID string, repair bool) (ReconcileReport, error) {
	report := ReconcileReport{Missing: []string{}, Skipped: []string{}, Repaired: []string{}, Failed: []string{}}

	local, err := s.local.List(ctx, clientID)
	if err != nil {
		return report, fmt.Errorf("failed to read local orders: %w", err)
	}

	seen := make(map[string]bool, len(local))
	for _, entry := range local {
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		report.Checked++

		_, err := s.orders.GetByID(ctx, entry.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrOrderNotFound) {
			return report, fmt.Errorf("failed to check order %s: %w", entry.ID, err)
		}

		report.Missing = append(report.Missing, entry.ID)
		if entry.RemoteStatus == models.RemoteStatusFailed {
			report.Skipped = append(report.Skipped, entry.ID)
			continue
		}
		if !repair {
			continue
		}

		order := entry.Order
		if err := s.orders.Create(ctx, &order); err != nil {
			logger.Get().Warn("Failed to repair order",
				zap.String("order_id", entry.ID),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, entry.ID)
			continue
		}
		report.Repaired = append(report.Repaired, entry.ID)
	}
	return report, nil
}

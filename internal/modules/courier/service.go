// README: Courier availability gate and business open/closed toggle.
package courier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mandado/internal/modules/order"
	"mandado/internal/types"
)

// ErrBlocked rejects an availability toggle while the courier holds an active
// delivery. The policy is directionless: no toggle at all with an active
// order assigned.
var ErrBlocked = errors.New("courier has an active order")

// ActiveOrders answers whether a courier currently holds a non-terminal order.
type ActiveOrders interface {
	HasActiveForCourier(ctx context.Context, courierID types.ID) (bool, error)
}

// AvailabilityStore persists courier availability and the business open flag.
// *Store is the Redis implementation; tests plug in fakes.
type AvailabilityStore interface {
	SetAvailable(ctx context.Context, id types.ID, available bool) error
	IsAvailable(ctx context.Context, id types.ID) (bool, error)
	LastAvailableAt(ctx context.Context, id types.ID) (time.Time, bool, error)
	SetBusinessOpen(ctx context.Context, id types.ID, open bool) error
	IsBusinessOpen(ctx context.Context, id types.ID) (bool, error)
}

type Service struct {
	store  AvailabilityStore
	orders ActiveOrders
	log    *zap.Logger
}

func NewService(store AvailabilityStore, orders ActiveOrders, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, orders: orders, log: log}
}

// SetAvailability toggles whether the courier receives new offers. Blocked in
// both directions while an active order is assigned to them.
func (s *Service) SetAvailability(ctx context.Context, courierID types.ID, desired bool) error {
	active, err := s.orders.HasActiveForCourier(ctx, courierID)
	if err != nil {
		return err
	}
	if active {
		return ErrBlocked
	}
	return s.store.SetAvailable(ctx, courierID, desired)
}

func (s *Service) Availability(ctx context.Context, courierID types.ID) (bool, time.Time, error) {
	available, err := s.store.IsAvailable(ctx, courierID)
	if err != nil {
		return false, time.Time{}, err
	}
	last, _, err := s.store.LastAvailableAt(ctx, courierID)
	if err != nil {
		return false, time.Time{}, err
	}
	return available, last, nil
}

// SetBusinessOpen has no gate: open/closed only decides whether new orders may
// be created against the business, checked at creation time.
func (s *Service) SetBusinessOpen(ctx context.Context, businessID types.ID, open bool) error {
	return s.store.SetBusinessOpen(ctx, businessID, open)
}

// IsOpen implements order.BusinessGate.
func (s *Service) IsOpen(ctx context.Context, businessID types.ID) (bool, error) {
	return s.store.IsBusinessOpen(ctx, businessID)
}

var _ order.BusinessGate = (*Service)(nil)

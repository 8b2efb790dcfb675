// README: Persistence seam for the order aggregate.
package order

import (
	"context"
	"time"

	"mandado/internal/types"
)

// Filter narrows QueryOrdersFor results. Non-terminal orders are always
// returned; terminal ones only when they changed at or after TerminalSince,
// so dashboards still observe recent cancellations and deliveries.
// UpdatedSince additionally drops rows unchanged since that instant; the zero
// value keeps everything.
type Filter struct {
	TerminalSince time.Time
	UpdatedSince  time.Time
}

// Store persists order aggregates. SaveOrder applies an optimistic check on
// the aggregate's version: the write only succeeds when the stored version
// still equals expectedVersion, and it bumps the version by one.
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	LoadOrder(ctx context.Context, id types.ID) (*Order, error)
	SaveOrder(ctx context.Context, o *Order, expectedVersion int) error
	QueryOrdersFor(ctx context.Context, actorID types.ID, role types.Role, f Filter) ([]*Order, error)
	HasActiveForCourier(ctx context.Context, courierID types.ID) (bool, error)
}

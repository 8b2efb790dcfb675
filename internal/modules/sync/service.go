// README: Delta synchronization; dashboards reconcile with this instead of
// full reloads, and it is the correctness backstop when a push is dropped.
package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mandado/internal/modules/order"
	"mandado/internal/types"
)

// DefaultDeliveredWindow is how long delivered and removed orders remain
// visible in deltas so clients can reconcile them.
const DefaultDeliveredWindow = 24 * time.Hour

type Service struct {
	store  order.Store
	window time.Duration
	log    *zap.Logger
}

func NewService(store order.Store, window time.Duration, log *zap.Logger) *Service {
	if window <= 0 {
		window = DefaultDeliveredWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, window: window, log: log}
}

// Delta returns the caller-relevant order snapshot: every non-terminal order,
// plus terminal orders that changed within the trailing window. Recently
// cancelled or rejected orders are included precisely so the client merge can
// delete them from its working set.
//
// A non-zero since marker narrows the batch to orders changed at or after that
// instant; the zero value returns the full snapshot. Clients echo back the
// synced-at marker from their previous poll, and a lost marker just degrades
// to the full snapshot again.
func (s *Service) Delta(ctx context.Context, actorID types.ID, role types.Role, since time.Time) ([]*order.Order, error) {
	return s.store.QueryOrdersFor(ctx, actorID, role, order.Filter{
		TerminalSince: time.Now().UTC().Add(-s.window),
		UpdatedSince:  since,
	})
}

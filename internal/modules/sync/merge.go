// README: Client-side merge law for delta results.
package sync

import (
	"mandado/internal/modules/order"
	"mandado/internal/types"
)

// Snapshot is a client's working set of orders, keyed by order id. The same
// merge runs on every dashboard: apply a delta batch by deleting orders that
// reached a removal-terminal status and upserting everything else. Delivered
// orders upsert (they stay visible for a trailing window); cancelled and
// rejected orders delete. Applying the same delta twice is a no-op, which is
// what makes polling safe to repeat on a timer.
type Snapshot map[types.ID]*order.Order

func NewSnapshot() Snapshot {
	return make(Snapshot)
}

// Apply merges one delta batch into the snapshot.
func (s Snapshot) Apply(incoming []*order.Order) {
	for _, o := range incoming {
		if removes(o.Status) {
			delete(s, o.ID)
			continue
		}
		s[o.ID] = o
	}
}

func removes(st order.Status) bool {
	return st.IsTerminal() && st != order.StatusDelivered
}

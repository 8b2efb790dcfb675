// README: In-memory order store with the same optimistic-locking semantics as
// the PostgreSQL store; backs unit and race tests.
package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"mandado/internal/types"
)

type MemoryStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[types.ID]*Order)}
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return ErrConflict
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryStore) LoadOrder(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) SaveOrder(_ context.Context, o *Order, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.StatusVersion != expectedVersion {
		return ErrConflict
	}
	next := cloneOrder(o)
	next.StatusVersion = expectedVersion + 1
	// first assignment wins, like COALESCE(courier_id, ...) in SQL
	if cur.CourierID != nil {
		next.CourierID = cur.CourierID
	}
	if cur.ReadyForPickupAt != nil {
		next.ReadyForPickupAt = cur.ReadyForPickupAt
	}
	if cur.PickedUpAt != nil {
		next.PickedUpAt = cur.PickedUpAt
	}
	if cur.OnTheWayAt != nil {
		next.OnTheWayAt = cur.OnTheWayAt
	}
	if cur.CancelReason != nil {
		next.CancelReason = cur.CancelReason
	}
	s.orders[o.ID] = next
	o.StatusVersion = next.StatusVersion
	return nil
}

func (s *MemoryStore) QueryOrdersFor(_ context.Context, actorID types.ID, role types.Role, f Filter) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Order
	for _, o := range s.orders {
		if !o.Involves(actorID, role) {
			continue
		}
		if o.Status.IsTerminal() && o.UpdatedAt.Before(f.TerminalSince) {
			continue
		}
		if o.UpdatedAt.Before(f.UpdatedSince) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) HasActiveForCourier(_ context.Context, courierID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.CourierID != nil && *o.CourierID == courierID && o.Active() {
			return true, nil
		}
	}
	return false, nil
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.CourierID != nil {
		v := *o.CourierID
		c.CourierID = &v
	}
	c.ReadyForPickupAt = cloneTime(o.ReadyForPickupAt)
	c.PickedUpAt = cloneTime(o.PickedUpAt)
	c.OnTheWayAt = cloneTime(o.OnTheWayAt)
	if o.CancelReason != nil {
		v := *o.CancelReason
		c.CancelReason = &v
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

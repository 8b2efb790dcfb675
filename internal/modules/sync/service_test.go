// README: Delta query tests on the in-memory order store.
package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandado/internal/modules/order"
	"mandado/internal/types"
)

func seedOrder(t *testing.T, store order.Store, id string, st order.Status, updated time.Time, courierID string) {
	t.Helper()
	o := &order.Order{
		ID:         types.ID(id),
		CustomerID: "c1",
		BusinessID: "b1",
		Status:     st,
		CreatedAt:  updated,
		UpdatedAt:  updated,
	}
	if courierID != "" {
		cid := types.ID(courierID)
		o.CourierID = &cid
	}
	require.NoError(t, store.CreateOrder(context.Background(), o))
}

func TestDeltaFiltersStaleTerminals(t *testing.T) {
	store := order.NewMemoryStore()
	svc := NewService(store, 24*time.Hour, nil)
	now := time.Now().UTC()

	seedOrder(t, store, "active", order.StatusConfirmed, now.Add(-72*time.Hour), "")
	seedOrder(t, store, "fresh_delivered", order.StatusDelivered, now.Add(-time.Hour), "")
	seedOrder(t, store, "fresh_cancelled", order.StatusCancelled, now.Add(-time.Hour), "")
	seedOrder(t, store, "stale_delivered", order.StatusDelivered, now.Add(-48*time.Hour), "")
	seedOrder(t, store, "stale_rejected", order.StatusRejected, now.Add(-48*time.Hour), "")

	got, err := svc.Delta(context.Background(), "b1", types.RoleBusiness, time.Time{})
	require.NoError(t, err)

	ids := make(map[types.ID]bool, len(got))
	for _, o := range got {
		ids[o.ID] = true
	}
	// non-terminal orders always show up, however old
	assert.True(t, ids["active"])
	// recent terminals show up so clients can reconcile them
	assert.True(t, ids["fresh_delivered"])
	assert.True(t, ids["fresh_cancelled"])
	// stale terminals are gone
	assert.False(t, ids["stale_delivered"])
	assert.False(t, ids["stale_rejected"])
}

func TestDeltaScopedToActor(t *testing.T) {
	store := order.NewMemoryStore()
	svc := NewService(store, 24*time.Hour, nil)
	now := time.Now().UTC()

	seedOrder(t, store, "mine", order.StatusDeliveryAssigned, now, "d1")
	seedOrder(t, store, "other", order.StatusReadyForPickup, now, "")

	got, err := svc.Delta(context.Background(), "d1", types.RoleCourier, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.ID("mine"), got[0].ID)
}

func TestDeltaSinceMarker(t *testing.T) {
	store := order.NewMemoryStore()
	svc := NewService(store, 24*time.Hour, nil)
	now := time.Now().UTC()

	seedOrder(t, store, "old_active", order.StatusConfirmed, now.Add(-2*time.Hour), "")
	seedOrder(t, store, "changed", order.StatusReadyForPickup, now, "")

	// full snapshot without a marker
	got, err := svc.Delta(context.Background(), "b1", types.RoleBusiness, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// with a marker only orders changed since then come back
	got, err = svc.Delta(context.Background(), "b1", types.RoleBusiness, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.ID("changed"), got[0].ID)

	// a marker ahead of every change yields an empty batch
	got, err = svc.Delta(context.Background(), "b1", types.RoleBusiness, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// End to end: a missed push is healed by the next poll feeding the merge.
func TestDeltaThenMergeReconciles(t *testing.T) {
	store := order.NewMemoryStore()
	deltaSvc := NewService(store, 24*time.Hour, nil)
	orderSvc := order.NewService(store, nil, nil, nil)
	ctx := context.Background()

	o, err := orderSvc.Create(ctx, order.CreateCommand{
		CustomerID: "c1", BusinessID: "b1",
		Items: []order.ItemInput{{Name: "tacos", Quantity: 3, UnitPrice: types.Money{Amount: 1500}}},
	})
	require.NoError(t, err)

	client := NewSnapshot()
	batch, err := deltaSvc.Delta(ctx, "b1", types.RoleBusiness, time.Time{})
	require.NoError(t, err)
	client.Apply(batch)
	require.Len(t, client, 1)
	assert.Equal(t, order.StatusPending, client[o.ID].Status)

	// the business rejects; assume the push got dropped
	_, err = orderSvc.Transition(ctx, order.TransitionCommand{
		OrderID: o.ID, ActorRole: types.RoleBusiness, ActorID: "b1",
		TargetStatus: order.StatusRejected, Note: "kitchen closed",
	})
	require.NoError(t, err)

	batch, err = deltaSvc.Delta(ctx, "b1", types.RoleBusiness, time.Time{})
	require.NoError(t, err)
	client.Apply(batch)
	assert.Empty(t, client, "rejected order removed from the working set")
}

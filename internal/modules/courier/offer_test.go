// README: Offer broadcast and countdown tests.
package courier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandado/internal/modules/notify"
	"mandado/internal/modules/order"
	"mandado/internal/types"
)

type fakeOfferStore struct {
	couriers     []types.ID
	dispatched   map[types.ID][]types.ID
	dispatchedAt map[types.ID]time.Time
}

func (f *fakeOfferStore) AvailableCouriers(context.Context) ([]types.ID, error) {
	return f.couriers, nil
}

func (f *fakeOfferStore) RecordDispatch(_ context.Context, orderID types.ID, courierIDs []types.ID) error {
	if f.dispatched == nil {
		f.dispatched = make(map[types.ID][]types.ID)
		f.dispatchedAt = make(map[types.ID]time.Time)
	}
	f.dispatched[orderID] = courierIDs
	f.dispatchedAt[orderID] = time.Now().UTC()
	return nil
}

func (f *fakeOfferStore) DispatchedAt(_ context.Context, orderID types.ID) (time.Time, bool, error) {
	at, ok := f.dispatchedAt[orderID]
	return at, ok, nil
}

type fakePusher struct {
	mu   sync.Mutex
	sent []notify.Message
	fail map[string]bool
}

func (f *fakePusher) Send(_ context.Context, token string, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[token] {
		return errors.New("push channel down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeTokens map[types.ID]string

func (f fakeTokens) Token(_ context.Context, id types.ID) (string, error) {
	return f[id], nil
}

func testOrder() *order.Order {
	return &order.Order{
		ID:         "o1",
		BusinessID: "b1",
		CustomerID: "c1",
		Status:     order.StatusReadyForPickup,
		Shipping:   types.Money{Amount: 700},
	}
}

func TestOfferBroadcastReachesAvailableCouriers(t *testing.T) {
	store := &fakeOfferStore{couriers: []types.ID{"d1", "d2", "d3"}}
	pusher := &fakePusher{}
	tokens := fakeTokens{"d1": "t1", "d2": "t2"} // d3 has no device

	offers := NewOffers(store, pusher, tokens, nil)
	offers.OfferOpened(context.Background(), testOrder())

	assert.Len(t, pusher.sent, 2)
	for _, msg := range pusher.sent {
		assert.Equal(t, "new_offer", msg.Data["type"])
		assert.Equal(t, "o1", msg.Data["order_id"])
		assert.Equal(t, "700", msg.Data["delivery_fee"])
		assert.Equal(t, "30", msg.Data["expires_in_seconds"])
	}
	require.Contains(t, store.dispatched, types.ID("o1"))
	assert.Len(t, store.dispatched["o1"], 3, "dispatch records every notified courier")
}

func TestOfferBroadcastSurvivesPushFailure(t *testing.T) {
	store := &fakeOfferStore{couriers: []types.ID{"d1", "d2"}}
	pusher := &fakePusher{fail: map[string]bool{"t1": true}}
	tokens := fakeTokens{"d1": "t1", "d2": "t2"}

	offers := NewOffers(store, pusher, tokens, nil)
	offers.OfferOpened(context.Background(), testOrder())

	// the failed push is dropped, the rest still go out
	assert.Len(t, pusher.sent, 1)
}

func TestOfferBroadcastNoCouriers(t *testing.T) {
	store := &fakeOfferStore{}
	pusher := &fakePusher{}
	offers := NewOffers(store, pusher, fakeTokens{}, nil)
	offers.OfferOpened(context.Background(), testOrder())
	assert.Empty(t, pusher.sent)
	assert.Empty(t, store.dispatched)
}

func TestOfferBroadcastNotRepeated(t *testing.T) {
	store := &fakeOfferStore{couriers: []types.ID{"d1"}}
	pusher := &fakePusher{}
	tokens := fakeTokens{"d1": "t1"}

	offers := NewOffers(store, pusher, tokens, nil)
	offers.OfferOpened(context.Background(), testOrder())
	offers.OfferOpened(context.Background(), testOrder())

	// the second open is a replay; couriers hear about the order once
	assert.Len(t, pusher.sent, 1)
}

func TestOfferTimerExpires(t *testing.T) {
	expired := make(chan struct{})
	NewOfferTimer(10*time.Millisecond, func() { close(expired) })

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestOfferTimerCancel(t *testing.T) {
	fired := make(chan struct{})
	timer := NewOfferTimer(20*time.Millisecond, func() { close(fired) })

	assert.True(t, timer.Cancel(), "first cancel wins")
	assert.False(t, timer.Cancel(), "second cancel is a no-op")

	select {
	case <-fired:
		t.Fatal("cancelled timer must not fire")
	case <-time.After(60 * time.Millisecond):
	}
}

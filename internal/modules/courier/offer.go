// README: Offer broadcast to available couriers and the client-side
// acceptance countdown.
package courier

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"mandado/internal/modules/notify"
	"mandado/internal/modules/order"
	"mandado/internal/types"
)

// DefaultOfferWindow is the advisory acceptance countdown couriers run after
// receiving an offer. It paces clients only; the authoritative exclusivity
// guarantee is the compare-and-swap in the order service, not this timer.
const DefaultOfferWindow = 30 * time.Second

// OfferStore records offer dispatches and lists the assignable pool.
type OfferStore interface {
	AvailableCouriers(ctx context.Context) ([]types.ID, error)
	RecordDispatch(ctx context.Context, orderID types.ID, courierIDs []types.ID) error
	DispatchedAt(ctx context.Context, orderID types.ID) (time.Time, bool, error)
}

// Offers broadcasts new ready-for-pickup orders to every available courier
// and records the dispatch. It implements notify.Broadcaster.
type Offers struct {
	store  OfferStore
	pusher notify.Pusher
	tokens notify.TokenSource
	window time.Duration
	log    *zap.Logger
}

func NewOffers(store OfferStore, pusher notify.Pusher, tokens notify.TokenSource, log *zap.Logger) *Offers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Offers{store: store, pusher: pusher, tokens: tokens, window: DefaultOfferWindow, log: log}
}

// SetWindow overrides the advisory countdown advertised to couriers.
func (o *Offers) SetWindow(w time.Duration) {
	if w > 0 {
		o.window = w
	}
}

// OfferOpened pushes the offer to every available courier. Best-effort: a
// courier a push never reaches still sees the order on the next delta poll.
// An order already dispatched is not broadcast again, so a replayed
// ready_for_pickup event cannot spam the pool.
func (o *Offers) OfferOpened(ctx context.Context, ord *order.Order) {
	if dispatched, ok, err := o.store.DispatchedAt(ctx, ord.ID); err == nil && ok {
		o.log.Info("offer already dispatched",
			zap.String("order_id", string(ord.ID)),
			zap.Time("dispatched_at", dispatched))
		return
	}

	couriers, err := o.store.AvailableCouriers(ctx)
	if err != nil {
		o.log.Warn("listing available couriers failed",
			zap.String("order_id", string(ord.ID)), zap.Error(err))
		return
	}
	if len(couriers) == 0 {
		o.log.Info("no couriers available for offer",
			zap.String("order_id", string(ord.ID)))
		return
	}

	if err := o.store.RecordDispatch(ctx, ord.ID, couriers); err != nil {
		o.log.Warn("recording offer dispatch failed",
			zap.String("order_id", string(ord.ID)), zap.Error(err))
	}

	if o.pusher == nil || o.tokens == nil {
		return
	}

	msg := notify.Message{
		Title: "New delivery offer",
		Body:  "An order is ready for pickup nearby",
		Data: map[string]string{
			"type":               "new_offer",
			"order_id":           string(ord.ID),
			"business_id":        string(ord.BusinessID),
			"delivery_fee":       strconv.FormatInt(ord.Shipping.Amount, 10),
			"expires_in_seconds": strconv.FormatInt(int64(o.window/time.Second), 10),
		},
	}
	for _, id := range couriers {
		token, err := o.tokens.Token(ctx, id)
		if err != nil || token == "" {
			continue
		}
		if err := o.pusher.Send(ctx, token, msg); err != nil {
			o.log.Warn("offer push failed",
				zap.String("courier_id", string(id)),
				zap.String("order_id", string(ord.ID)),
				zap.Error(err))
		}
	}
}

var _ notify.Broadcaster = (*Offers)(nil)

// OfferTimer is the client-local acceptance countdown: a cancellable scheduled
// task, not a blocking sleep. Expiry discards the local offer so the courier
// re-enters the assignable pool; it never mutates the order server-side. The
// timer stops mattering once the authoritative status changes underneath it.
type OfferTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// NewOfferTimer schedules onExpire after window. Cancel before expiry (on
// accept, or on learning the order moved under another courier) discards it.
func NewOfferTimer(window time.Duration, onExpire func()) *OfferTimer {
	t := &OfferTimer{}
	t.timer = time.AfterFunc(window, func() {
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			return
		}
		t.done = true
		t.mu.Unlock()
		onExpire()
	})
	return t
}

// Cancel stops the countdown. Reports whether the timer was still pending.
func (t *OfferTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.timer.Stop()
	return true
}

// README: Notification dispatcher; fans a committed transition out to the
// affected parties. Best-effort: failures are logged and dropped, never
// surfaced to the transition caller.
package notify

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"mandado/internal/modules/order"
	"mandado/internal/types"
)

// Pusher delivers one message to one device. Fire-and-forget from the
// dispatcher's point of view; no delivery guarantee is assumed.
type Pusher interface {
	Send(ctx context.Context, token string, msg Message) error
}

// Message is the payload handed to the push channel. Clients merge by
// (order_id, status), so redelivery of the same transition is harmless.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// TokenSource resolves an actor's registered device token. An empty token
// means no device is registered and the recipient is skipped.
type TokenSource interface {
	Token(ctx context.Context, actorID types.ID) (string, error)
}

// EventSink mirrors committed transitions onto a stream for dashboards and
// analytics. Same best-effort contract as push.
type EventSink interface {
	Publish(ctx context.Context, ev order.Event) error
}

// Broadcaster opens a courier offer when an order becomes ready for pickup.
type Broadcaster interface {
	OfferOpened(ctx context.Context, o *order.Order)
}

type Dispatcher struct {
	pusher    Pusher
	tokens    TokenSource
	sink      EventSink
	broadcast Broadcaster
	log       *zap.Logger
}

func NewDispatcher(pusher Pusher, tokens TokenSource, sink EventSink, broadcast Broadcaster, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{pusher: pusher, tokens: tokens, sink: sink, broadcast: broadcast, log: log}
}

// OrderTransitioned implements order.Notifier. The status change is already
// durable when this runs; nothing here may fail the transition.
func (d *Dispatcher) OrderTransitioned(ctx context.Context, ev order.Event, o *order.Order) {
	if d.sink != nil {
		if err := d.sink.Publish(ctx, ev); err != nil {
			d.log.Warn("event stream publish failed",
				zap.String("order_id", string(ev.OrderID)),
				zap.String("to_status", string(ev.ToStatus)),
				zap.Error(err))
		}
	}

	msg := buildMessage(ev, o)
	for _, recipient := range audience(ev) {
		d.push(ctx, recipient, msg)
	}

	if d.broadcast != nil && ev.ToStatus == order.StatusReadyForPickup {
		d.broadcast.OfferOpened(ctx, o)
	}
}

// audience determines who hears about a transition: the customer always, the
// business for courier-triggered transitions (and order creation), the courier
// for business-triggered transitions once one is assigned.
func audience(ev order.Event) []types.ID {
	out := []types.ID{ev.CustomerID}
	switch ev.ActorRole {
	case types.RoleCourier:
		out = append(out, ev.BusinessID)
	case types.RoleCustomer:
		if ev.ToStatus == order.StatusPending {
			out = append(out, ev.BusinessID)
		}
	case types.RoleBusiness:
		if ev.CourierID != nil {
			out = append(out, *ev.CourierID)
		}
	}
	return out
}

func buildMessage(ev order.Event, o *order.Order) Message {
	data := map[string]string{
		"type":        "order_update",
		"order_id":    string(ev.OrderID),
		"status":      string(ev.ToStatus),
		"timestamp":   ev.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
		"business_id": string(ev.BusinessID),
	}
	if o != nil {
		data["delivery_fee"] = strconv.FormatInt(o.Shipping.Amount, 10)
	}
	if ev.Note != "" {
		data["note"] = ev.Note
	}
	return Message{
		Title: "Order update",
		Body:  statusLine(ev.ToStatus),
		Data:  data,
	}
}

func statusLine(s order.Status) string {
	switch s {
	case order.StatusPending:
		return "New order placed"
	case order.StatusConfirmed:
		return "Your order was confirmed"
	case order.StatusReadyForPickup:
		return "Order is ready for pickup"
	case order.StatusDeliveryAssigned:
		return "A courier took your order"
	case order.StatusPickedUp, order.StatusOnTheWay:
		return "Your order is on the way"
	case order.StatusDelivered:
		return "Order delivered"
	case order.StatusCancelled:
		return "Order cancelled"
	case order.StatusRejected:
		return "Order rejected"
	}
	return "Order update"
}

func (d *Dispatcher) push(ctx context.Context, recipient types.ID, msg Message) {
	if d.pusher == nil || d.tokens == nil || recipient == "" {
		return
	}
	token, err := d.tokens.Token(ctx, recipient)
	if err != nil {
		d.log.Warn("device token lookup failed",
			zap.String("recipient", string(recipient)), zap.Error(err))
		return
	}
	if token == "" {
		return
	}
	if err := d.pusher.Send(ctx, token, msg); err != nil {
		d.log.Warn("push delivery failed",
			zap.String("recipient", string(recipient)),
			zap.String("order_id", msg.Data["order_id"]),
			zap.Error(err))
	}
}

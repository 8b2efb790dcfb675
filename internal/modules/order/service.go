// README: Order service implements creation and state transitions.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mandado/internal/types"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrAlreadyTerminal    = errors.New("order already terminal")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrMissingReason      = errors.New("cancel/reject requires a reason")
	ErrConflict           = errors.New("order state conflict")
	ErrCourierUnavailable = errors.New("order no longer available")
	ErrUnauthorized       = errors.New("actor not allowed on this order")
	ErrBusinessClosed     = errors.New("business is closed")
	ErrBadRequest         = errors.New("bad request")
)

// Notifier receives committed transition events. Implementations must be
// best-effort: the transition has already been persisted when this runs, and
// nothing the notifier does can roll it back.
type Notifier interface {
	OrderTransitioned(ctx context.Context, ev Event, o *Order)
}

// BusinessGate answers whether a business currently accepts new orders.
type BusinessGate interface {
	IsOpen(ctx context.Context, businessID types.ID) (bool, error)
}

type Service struct {
	store    Store
	notifier Notifier
	gate     BusinessGate
	log      *zap.Logger
}

func NewService(store Store, notifier Notifier, gate BusinessGate, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, gate: gate, log: log}
}

type ItemInput struct {
	Name       string
	Quantity   int64
	UnitPrice  types.Money
	Extras     []Extra
	Variations []Extra
}

type CreateCommand struct {
	CustomerID types.ID
	BusinessID types.ID
	Shipping   types.Money
	Notes      string
	Items      []ItemInput
}

type TransitionCommand struct {
	OrderID      types.ID
	ActorRole    types.Role
	ActorID      types.ID
	TargetStatus Status
	Note         string
}

type AcceptCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

// Create builds the aggregate with snapshot pricing: extras and variations are
// value-copied into the order, and total = subtotal + shipping is fixed at
// creation and never recomputed.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" || cmd.BusinessID == "" || len(cmd.Items) == 0 {
		return nil, ErrBadRequest
	}
	if s.gate != nil {
		open, err := s.gate.IsOpen(ctx, cmd.BusinessID)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, ErrBusinessClosed
		}
	}

	now := time.Now().UTC()
	subtotal := types.Money{Currency: types.DefaultCurrency}
	items := make([]OrderItem, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		if in.Quantity <= 0 {
			return nil, ErrBadRequest
		}
		total := ItemTotal(in.UnitPrice, in.Quantity, in.Extras, in.Variations)
		items = append(items, OrderItem{
			ID:         types.ID(uuid.NewString()),
			Name:       in.Name,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			Extras:     append([]Extra(nil), in.Extras...),
			Variations: append([]Extra(nil), in.Variations...),
			TotalPrice: total,
		})
		subtotal = subtotal.Add(total)
	}

	o := &Order{
		ID:            types.ID(uuid.NewString()),
		CustomerID:    cmd.CustomerID,
		BusinessID:    cmd.BusinessID,
		Status:        StatusPending,
		StatusVersion: 0,
		Items:         items,
		Subtotal:      subtotal,
		Shipping:      cmd.Shipping,
		Total:         subtotal.Add(cmd.Shipping),
		Notes:         cmd.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.notify(ctx, Event{
		OrderID:    o.ID,
		BusinessID: o.BusinessID,
		CustomerID: o.CustomerID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorRole:  types.RoleCustomer,
		ActorID:    cmd.CustomerID,
		OccurredAt: now,
	}, o)
	return o, nil
}

// Transition validates and applies a requested status change. The persisted
// write is durable before the notification fan-out runs; a notifier failure
// never rolls back or blocks the change.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
	o, err := s.store.LoadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}
	if err := s.authorize(o, cmd.ActorRole, cmd.ActorID); err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.ActorRole, cmd.TargetStatus) {
		return nil, ErrInvalidTransition
	}
	if cmd.TargetStatus.RequiresReason() && cmd.Note == "" {
		return nil, ErrMissingReason
	}

	from := o.Status
	version := o.StatusVersion
	now := time.Now().UTC()
	o.Status = cmd.TargetStatus
	o.UpdatedAt = now
	stampMilestone(o, cmd.TargetStatus, now)
	if cmd.TargetStatus.RequiresReason() {
		note := cmd.Note
		o.CancelReason = &note
	}
	if err := s.store.SaveOrder(ctx, o, version); err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		OrderID:    o.ID,
		BusinessID: o.BusinessID,
		CustomerID: o.CustomerID,
		CourierID:  o.CourierID,
		FromStatus: from,
		ToStatus:   cmd.TargetStatus,
		ActorRole:  cmd.ActorRole,
		ActorID:    cmd.ActorID,
		Note:       cmd.Note,
		OccurredAt: now,
	}, o)
	return o, nil
}

// Accept is the courier-acceptance special case: ready_for_pickup →
// delivery_assigned combined with atomically claiming courier_id. The
// optimistic version check makes acceptance exclusive; every racer past the
// first loses the compare-and-swap and gets ErrCourierUnavailable.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Order, error) {
	o, err := s.store.LoadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusReadyForPickup || o.CourierID != nil {
		return nil, ErrCourierUnavailable
	}

	from := o.Status
	version := o.StatusVersion
	now := time.Now().UTC()
	courierID := cmd.CourierID
	o.Status = StatusDeliveryAssigned
	o.CourierID = &courierID
	o.UpdatedAt = now
	if err := s.store.SaveOrder(ctx, o, version); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrCourierUnavailable
		}
		return nil, err
	}

	s.notify(ctx, Event{
		OrderID:    o.ID,
		BusinessID: o.BusinessID,
		CustomerID: o.CustomerID,
		CourierID:  o.CourierID,
		FromStatus: from,
		ToStatus:   StatusDeliveryAssigned,
		ActorRole:  types.RoleCourier,
		ActorID:    cmd.CourierID,
		OccurredAt: now,
	}, o)
	return o, nil
}

// Get returns the order to an involved actor only: its customer, its business,
// or the courier assigned to it.
func (s *Service) Get(ctx context.Context, id, actorID types.ID, role types.Role) (*Order, error) {
	o, err := s.store.LoadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Involves(actorID, role) {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// authorize binds the acting actor to the order: a business may only touch its
// own orders, a courier only orders assigned to them. The accept path has its
// own rules and does not come through here.
func (s *Service) authorize(o *Order, role types.Role, actorID types.ID) error {
	switch role {
	case types.RoleBusiness:
		if o.BusinessID != actorID {
			return ErrUnauthorized
		}
	case types.RoleCourier:
		if o.CourierID == nil || *o.CourierID != actorID {
			return ErrUnauthorized
		}
	default:
		return ErrUnauthorized
	}
	return nil
}

// stampMilestone records the milestone timestamp for statuses that carry one.
// Each is set exactly once and never overwritten.
func stampMilestone(o *Order, to Status, now time.Time) {
	switch to {
	case StatusReadyForPickup:
		if o.ReadyForPickupAt == nil {
			o.ReadyForPickupAt = &now
		}
	case StatusPickedUp:
		if o.PickedUpAt == nil {
			o.PickedUpAt = &now
		}
	case StatusOnTheWay:
		if o.OnTheWayAt == nil {
			o.OnTheWayAt = &now
		}
	}
}

func (s *Service) notify(ctx context.Context, ev Event, o *Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.OrderTransitioned(ctx, ev, o)
}

// README: Order aggregate, line items, and status definitions.
package order

import (
	"time"

	"mandado/internal/types"
)

type Status string

const (
	StatusNone             Status = "none"
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusReadyForPickup   Status = "ready_for_pickup"
	StatusDeliveryAssigned Status = "delivery_assigned"
	StatusPickedUp         Status = "picked_up"
	StatusOnTheWay         Status = "on_the_way"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
	StatusRejected         Status = "rejected"
)

// IsTerminal reports whether no further transition is legal from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// RequiresReason reports whether a transition into s must carry a note.
func (s Status) RequiresReason() bool {
	return s == StatusCancelled || s == StatusRejected
}

// Extra is a snapshot of a catalog extra or variation taken at order time.
// Catalog price changes after the fact never alter historical totals.
type Extra struct {
	Name  string
	Price types.Money
}

type OrderItem struct {
	ID         types.ID
	Name       string
	Quantity   int64
	UnitPrice  types.Money
	Extras     []Extra
	Variations []Extra
	TotalPrice types.Money
}

// ItemTotal computes unit_price * quantity + Σextras + Σvariations.
func ItemTotal(unit types.Money, quantity int64, extras, variations []Extra) types.Money {
	total := unit.Mul(quantity)
	for _, e := range extras {
		total = total.Add(e.Price)
	}
	for _, v := range variations {
		total = total.Add(v.Price)
	}
	return total
}

type Order struct {
	ID            types.ID
	CustomerID    types.ID
	BusinessID    types.ID
	CourierID     *types.ID
	Status        Status
	StatusVersion int
	Items         []OrderItem
	Subtotal      types.Money
	Shipping      types.Money
	Total         types.Money
	Notes         string

	ReadyForPickupAt *time.Time
	PickedUpAt       *time.Time
	OnTheWayAt       *time.Time
	CancelReason     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the order still occupies its courier/business.
func (o *Order) Active() bool {
	return !o.Status.IsTerminal()
}

// Involves reports whether the actor participates in the order as the given
// role: its customer, its business, or the courier assigned to it.
func (o *Order) Involves(actorID types.ID, role types.Role) bool {
	switch role {
	case types.RoleCustomer:
		return o.CustomerID == actorID
	case types.RoleBusiness:
		return o.BusinessID == actorID
	case types.RoleCourier:
		return o.CourierID != nil && *o.CourierID == actorID
	}
	return false
}

// Event records one committed status transition for notification fan-out.
type Event struct {
	OrderID    types.ID
	BusinessID types.ID
	CustomerID types.ID
	CourierID  *types.ID
	FromStatus Status
	ToStatus   Status
	ActorRole  types.Role
	ActorID    types.ID
	Note       string
	OccurredAt time.Time
}

// README: Role-scoped order status flow table as code.
package order

import "mandado/internal/types"

// allowedTransitions maps (current status, actor role) to the legal next
// statuses. Authorization is role-scoped, not just state-scoped: a courier can
// never set confirmed even though the target value exists. Customers create
// orders but never drive transitions directly.
var allowedTransitions = map[Status]map[types.Role][]Status{
	StatusPending: {
		types.RoleBusiness: {StatusConfirmed, StatusRejected},
	},
	StatusConfirmed: {
		types.RoleBusiness: {StatusReadyForPickup, StatusCancelled},
	},
	StatusReadyForPickup: {
		types.RoleBusiness: {StatusCancelled},
		types.RoleCourier:  {StatusDeliveryAssigned},
	},
	StatusDeliveryAssigned: {
		types.RoleCourier: {StatusPickedUp, StatusCancelled},
	},
	StatusPickedUp: {
		types.RoleCourier: {StatusOnTheWay, StatusDelivered},
	},
	StatusOnTheWay: {
		types.RoleCourier: {StatusDelivered},
	},
}

// CanTransition reports whether role may move an order from one status to
// another. Pure table lookup, no shared mutable state.
func CanTransition(from Status, role types.Role, to Status) bool {
	byRole, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range byRole[role] {
		if s == to {
			return true
		}
	}
	return false
}

// Allowed returns the legal next statuses for role from the given status.
func Allowed(from Status, role types.Role) []Status {
	byRole, ok := allowedTransitions[from]
	if !ok {
		return nil
	}
	return append([]Status(nil), byRole[role]...)
}

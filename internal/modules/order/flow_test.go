// README: State machine table tests; no database required.
package order

import (
	"testing"

	"mandado/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		role types.Role
		to   Status
		want bool
	}{
		// happy-path forward transitions
		{StatusPending, types.RoleBusiness, StatusConfirmed, true},
		{StatusConfirmed, types.RoleBusiness, StatusReadyForPickup, true},
		{StatusReadyForPickup, types.RoleCourier, StatusDeliveryAssigned, true},
		{StatusDeliveryAssigned, types.RoleCourier, StatusPickedUp, true},
		{StatusPickedUp, types.RoleCourier, StatusOnTheWay, true},
		{StatusPickedUp, types.RoleCourier, StatusDelivered, true},
		{StatusOnTheWay, types.RoleCourier, StatusDelivered, true},
		// rejection and cancellation branches
		{StatusPending, types.RoleBusiness, StatusRejected, true},
		{StatusConfirmed, types.RoleBusiness, StatusCancelled, true},
		{StatusReadyForPickup, types.RoleBusiness, StatusCancelled, true},
		{StatusDeliveryAssigned, types.RoleCourier, StatusCancelled, true},
		// role scoping: the edge value exists but not for this role
		{StatusPending, types.RoleCourier, StatusConfirmed, false},
		{StatusPending, types.RoleCustomer, StatusConfirmed, false},
		{StatusConfirmed, types.RoleCourier, StatusReadyForPickup, false},
		{StatusReadyForPickup, types.RoleBusiness, StatusDeliveryAssigned, false},
		{StatusDeliveryAssigned, types.RoleBusiness, StatusPickedUp, false},
		{StatusPickedUp, types.RoleBusiness, StatusDelivered, false},
		// terminal states have no outgoing edges for anyone
		{StatusDelivered, types.RoleBusiness, StatusPending, false},
		{StatusDelivered, types.RoleCourier, StatusPickedUp, false},
		{StatusCancelled, types.RoleBusiness, StatusConfirmed, false},
		{StatusRejected, types.RoleBusiness, StatusConfirmed, false},
		// skipping states
		{StatusPending, types.RoleBusiness, StatusReadyForPickup, false},
		{StatusPending, types.RoleBusiness, StatusDelivered, false},
		{StatusConfirmed, types.RoleBusiness, StatusDelivered, false},
		{StatusDeliveryAssigned, types.RoleCourier, StatusDelivered, false},
		// backwards edges
		{StatusConfirmed, types.RoleBusiness, StatusPending, false},
		{StatusPickedUp, types.RoleCourier, StatusReadyForPickup, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.role, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tc.from, tc.role, tc.to, got, tc.want)
		}
	}
}

func TestAllowedCopies(t *testing.T) {
	next := Allowed(StatusPending, types.RoleBusiness)
	if len(next) != 2 {
		t.Fatalf("expected 2 edges from pending for business, got %d", len(next))
	}
	next[0] = StatusDelivered
	if CanTransition(StatusPending, types.RoleBusiness, StatusDelivered) {
		t.Fatal("mutating the Allowed result must not alter the flow table")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusDelivered, StatusCancelled, StatusRejected} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusReadyForPickup, StatusDeliveryAssigned, StatusPickedUp, StatusOnTheWay} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

// README: Common value objects shared across modules.
package types

// ID is an opaque entity identifier (UUID in production, free-form in tests).
type ID string

// Role identifies who is acting on an order.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleCourier  Role = "courier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBusiness, RoleCourier:
		return true
	}
	return false
}

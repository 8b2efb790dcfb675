// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mandado/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var activeStatuses = []string{
	string(StatusPending),
	string(StatusConfirmed),
	string(StatusReadyForPickup),
	string(StatusDeliveryAssigned),
	string(StatusPickedUp),
	string(StatusOnTheWay),
}

func (s *PostgresStore) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, business_id, courier_id, status, status_version,
			subtotal, shipping, total, currency, notes,
			ready_for_pickup_at, picked_up_at, on_the_way_at, cancel_reason,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		)`,
		string(o.ID),
		string(o.CustomerID),
		string(o.BusinessID),
		idPtr(o.CourierID),
		string(o.Status),
		o.StatusVersion,
		o.Subtotal.Amount, o.Shipping.Amount, o.Total.Amount, o.Total.Currency,
		o.Notes,
		o.ReadyForPickupAt, o.PickedUpAt, o.OnTheWayAt, o.CancelReason,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i, it := range o.Items {
		extras, err := json.Marshal(it.Extras)
		if err != nil {
			return err
		}
		variations, err := json.Marshal(it.Variations)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				id, order_id, position, name, quantity, unit_price, total_price,
				extras, variations
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			string(it.ID), string(o.ID), i, it.Name, it.Quantity,
			it.UnitPrice.Amount, it.TotalPrice.Amount,
			extras, variations,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) LoadOrder(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, business_id, courier_id, status, status_version,
		       subtotal, shipping, total, currency, notes,
		       ready_for_pickup_at, picked_up_at, on_the_way_at, cancel_reason,
		       created_at, updated_at
		FROM orders
		WHERE id = $1`, string(id),
	)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// SaveOrder applies the optimistic check: the row must still carry
// expectedVersion, and a courier can only ever be set once.
func (s *PostgresStore) SaveOrder(ctx context.Context, o *Order, expectedVersion int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    courier_id = COALESCE(courier_id, $2),
		    ready_for_pickup_at = COALESCE(ready_for_pickup_at, $3),
		    picked_up_at = COALESCE(picked_up_at, $4),
		    on_the_way_at = COALESCE(on_the_way_at, $5),
		    cancel_reason = COALESCE(cancel_reason, $6),
		    updated_at = $7
		WHERE id = $8 AND status_version = $9`,
		string(o.Status),
		idPtr(o.CourierID),
		o.ReadyForPickupAt, o.PickedUpAt, o.OnTheWayAt,
		o.CancelReason,
		o.UpdatedAt,
		string(o.ID),
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	o.StatusVersion = expectedVersion + 1
	return nil
}

func (s *PostgresStore) QueryOrdersFor(ctx context.Context, actorID types.ID, role types.Role, f Filter) ([]*Order, error) {
	var col string
	switch role {
	case types.RoleCustomer:
		col = "customer_id"
	case types.RoleBusiness:
		col = "business_id"
	case types.RoleCourier:
		col = "courier_id"
	default:
		return nil, ErrBadRequest
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, business_id, courier_id, status, status_version,
		       subtotal, shipping, total, currency, notes,
		       ready_for_pickup_at, picked_up_at, on_the_way_at, cancel_reason,
		       created_at, updated_at
		FROM orders
		WHERE `+col+` = $1
		  AND (status = ANY($2) OR updated_at >= $3)
		  AND updated_at >= $4
		ORDER BY created_at`,
		string(actorID), activeStatuses, f.TerminalSince, f.UpdatedSince,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) HasActiveForCourier(ctx context.Context, courierID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE courier_id = $1 AND status = ANY($2)
		)`, string(courierID), activeStatuses,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, o *Order) error {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, quantity, unit_price, total_price, extras, variations
		FROM order_items
		WHERE order_id = $1
		ORDER BY position`, string(o.ID),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		var extras, variations []byte
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity,
			&it.UnitPrice.Amount, &it.TotalPrice.Amount, &extras, &variations); err != nil {
			return err
		}
		it.UnitPrice.Currency = o.Total.Currency
		it.TotalPrice.Currency = o.Total.Currency
		if err := json.Unmarshal(extras, &it.Extras); err != nil {
			return err
		}
		if err := json.Unmarshal(variations, &it.Variations); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var customerID, courierID, cancelReason *string
	var currency string
	var readyAt, pickedAt, onWayAt *time.Time

	err := row.Scan(
		&o.ID, &customerID, &o.BusinessID, &courierID, &o.Status, &o.StatusVersion,
		&o.Subtotal.Amount, &o.Shipping.Amount, &o.Total.Amount, &currency, &o.Notes,
		&readyAt, &pickedAt, &onWayAt, &cancelReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if currency == "" {
		currency = types.DefaultCurrency
	}
	o.Subtotal.Currency = currency
	o.Shipping.Currency = currency
	o.Total.Currency = currency
	// guest rows predate mandatory accounts; they load with an empty customer id
	if customerID != nil {
		o.CustomerID = types.ID(*customerID)
	}
	if courierID != nil {
		c := types.ID(*courierID)
		o.CourierID = &c
	}
	o.ReadyForPickupAt = readyAt
	o.PickedUpAt = pickedAt
	o.OnTheWayAt = onWayAt
	o.CancelReason = cancelReason
	return &o, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

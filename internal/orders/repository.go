package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chinarbooks/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateIn inserts the order and its item snapshots inside the checkout
// transaction; it never commits on its own.
func (r *Repository) CreateIn(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	order.ID = uuid.New().String()
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, email, phone,
			ship_name, ship_line1, ship_line2, ship_city, ship_state, ship_pincode, ship_region,
			subtotal_paisa, discount_paisa, shipping_paisa, tax_paisa, total_paisa,
			coupon_code, status, payment_method, payment_status,
			gateway_order_ref, gateway_payment_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, '', '', $21, $21)
	`, order.ID, order.CustomerID, order.Email, order.Phone,
		order.ShippingAddress.Name, order.ShippingAddress.Line1, order.ShippingAddress.Line2,
		order.ShippingAddress.City, order.ShippingAddress.State, order.ShippingAddress.Pincode,
		order.ShippingAddress.Region,
		order.Totals.SubtotalPaisa, order.Totals.DiscountPaisa, order.Totals.ShippingPaisa,
		order.Totals.TaxPaisa, order.Totals.TotalPaisa,
		order.CouponCode, order.Status, order.PaymentMethod, order.PaymentStatus, now)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, title_snapshot, sku_snapshot, unit_price_paisa, quantity, line_total_paisa)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), order.ID, item.ProductID, item.TitleSnapshot, item.SKUSnapshot,
			item.UnitPricePaisa, item.Quantity, item.LineTotalPaisa)
		if err != nil {
			return err
		}
	}

	return nil
}

const orderColumns = `
	id, customer_id, email, phone,
	ship_name, ship_line1, ship_line2, ship_city, ship_state, ship_pincode, ship_region,
	subtotal_paisa, discount_paisa, shipping_paisa, tax_paisa, total_paisa,
	coupon_code, status, payment_method, payment_status,
	gateway_order_ref, gateway_payment_id,
	ship_carrier, ship_tracking_no, shipped_at, delivered_at,
	created_at, updated_at
`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	o := &domain.Order{}
	var carrier, trackingNo string
	var shippedAt, deliveredAt *time.Time

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Email, &o.Phone,
		&o.ShippingAddress.Name, &o.ShippingAddress.Line1, &o.ShippingAddress.Line2,
		&o.ShippingAddress.City, &o.ShippingAddress.State, &o.ShippingAddress.Pincode,
		&o.ShippingAddress.Region,
		&o.Totals.SubtotalPaisa, &o.Totals.DiscountPaisa, &o.Totals.ShippingPaisa,
		&o.Totals.TaxPaisa, &o.Totals.TotalPaisa,
		&o.CouponCode, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.GatewayOrderRef, &o.GatewayPaymentID,
		&carrier, &trackingNo, &shippedAt, &deliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if carrier != "" || trackingNo != "" {
		o.Shipment = &domain.Shipment{
			Carrier:     carrier,
			TrackingNo:  trackingNo,
			ShippedAt:   shippedAt,
			DeliveredAt: deliveredAt,
		}
	}
	return o, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrderRow(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil || o == nil {
		return o, err
	}
	return r.attachItems(ctx, o)
}

// GetByGatewayRef resolves the order a payment callback refers to.
func (r *Repository) GetByGatewayRef(ctx context.Context, gatewayOrderRef string) (*domain.Order, error) {
	o, err := scanOrderRow(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE gateway_order_ref = $1
	`, gatewayOrderRef))
	if err != nil || o == nil {
		return o, err
	}
	return r.attachItems(ctx, o)
}

func scanOrderRow(row *sql.Row) (*domain.Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func (r *Repository) attachItems(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, title_snapshot, sku_snapshot, unit_price_paisa, quantity, line_total_paisa
		FROM order_items
		WHERE order_id = $1
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.TitleSnapshot, &item.SKUSnapshot,
			&item.UnitPricePaisa, &item.Quantity, &item.LineTotalPaisa); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *Repository) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repository) SetGatewayOrderRef(ctx context.Context, id, ref string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET gateway_order_ref = $2, updated_at = NOW() WHERE id = $1
	`, id, ref)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TransitionStatus is a compare-and-swap on the order's status. Zero rows
// means the order was not in the expected state, so a concurrent transition
// already won; callers must not apply side effects in that case.
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	return transition(ctx, r.db, id, from, to)
}

// TransitionStatusIn is TransitionStatus inside a caller-owned transaction,
// used when a transition carries side effects (cancel restocks stock).
func (r *Repository) TransitionStatusIn(ctx context.Context, tx *sql.Tx, id string, from, to domain.OrderStatus) (bool, error) {
	return transition(ctx, tx, id, from, to)
}

func transition(ctx context.Context, ex execer, id string, from, to domain.OrderStatus) (bool, error) {
	result, err := ex.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// MarkPaid flips a pending order to paid atomically with the payment refs.
func (r *Repository) MarkPaid(ctx context.Context, id, paymentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, gateway_payment_id = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, id, domain.OrderStatusPaid, domain.PaymentStatusPaid, paymentID, domain.OrderStatusPending)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *Repository) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

// TransitionToShipped flips packed to shipped and records the shipment in
// the same statement; a shipped order can never lack its tracking info.
func (r *Repository) TransitionToShipped(ctx context.Context, id, carrier, trackingNo string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, ship_carrier = $3, ship_tracking_no = $4, shipped_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, id, domain.OrderStatusShipped, carrier, trackingNo, domain.OrderStatusPacked)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *Repository) TransitionToDelivered(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, delivered_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, domain.OrderStatusDelivered, domain.OrderStatusShipped)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

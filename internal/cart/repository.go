package cart

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

func (r *Repository) Create(ctx context.Context, customerID, sessionID string) (*domain.Cart, error) {
	c := &domain.Cart{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		SessionID:  sessionID,
		CreatedAt:  time.Now().UTC(),
	}
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, customer_id, session_id, coupon_code, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $4)
	`, c.ID, c.CustomerID, c.SessionID, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	c := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, session_id, coupon_code, created_at, updated_at
		FROM carts
		WHERE id = $1
	`, id).Scan(&c.ID, &c.CustomerID, &c.SessionID, &c.CouponCode, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY added_at
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

// SetLine writes the absolute quantity for a product, one line per product
// per cart. Merging add-to-cart quantities is the service's job.
func (r *Repository) SetLine(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`, cartID, productID, quantity)
	if err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *Repository) RemoveLine(ctx context.Context, cartID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_lines WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID)
	if err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *Repository) SetCoupon(ctx context.Context, cartID, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE carts SET coupon_code = $2, updated_at = NOW() WHERE id = $1
	`, cartID, code)
	return err
}

func (r *Repository) Clear(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
	if err != nil {
		return err
	}
	return r.SetCoupon(ctx, cartID, "")
}

// ClearIn empties the cart inside the checkout transaction so the cart and
// the order it became commit together.
func (r *Repository) ClearIn(ctx context.Context, tx *sql.Tx, cartID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE carts SET coupon_code = '', updated_at = NOW() WHERE id = $1
	`, cartID)
	return err
}

func (r *Repository) touch(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	return err
}

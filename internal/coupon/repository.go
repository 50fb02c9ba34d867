package coupon

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/chinarbooks/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *domain.Coupon) error {
	c.Code = strings.ToUpper(c.Code)
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (
			code, kind, value, min_subtotal_paisa,
			starts_at, ends_at, max_redemptions, redemptions, active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
	`, c.Code, c.Kind, c.Value, c.MinSubtotal,
		c.StartsAt, c.EndsAt, c.MaxRedemptions, c.Active, c.CreatedAt)
	return err
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return scanCoupon(r.db.QueryRowContext(ctx, `
		SELECT code, kind, value, min_subtotal_paisa,
			starts_at, ends_at, max_redemptions, redemptions, active, created_at
		FROM coupons
		WHERE code = $1
	`, strings.ToUpper(code)))
}

// GetForUpdate locks the coupon row inside the checkout transaction so two
// concurrent redemptions of the last allowed use are serialized.
func (r *Repository) GetForUpdate(ctx context.Context, tx *sql.Tx, code string) (*domain.Coupon, error) {
	return scanCoupon(tx.QueryRowContext(ctx, `
		SELECT code, kind, value, min_subtotal_paisa,
			starts_at, ends_at, max_redemptions, redemptions, active, created_at
		FROM coupons
		WHERE code = $1
		FOR UPDATE
	`, strings.ToUpper(code)))
}

func (r *Repository) MarkRedeemed(ctx context.Context, tx *sql.Tx, code string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE coupons SET redemptions = redemptions + 1
		WHERE code = $1
	`, strings.ToUpper(code))
	return err
}

func scanCoupon(row *sql.Row) (*domain.Coupon, error) {
	c := &domain.Coupon{}
	err := row.Scan(
		&c.Code, &c.Kind, &c.Value, &c.MinSubtotal,
		&c.StartsAt, &c.EndsAt, &c.MaxRedemptions, &c.Redemptions, &c.Active, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

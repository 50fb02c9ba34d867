package coupon

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chinarbooks/storefront/internal/domain"
)

// Validator decides whether a code applies to a subtotal and what discount
// it yields. Checks run in a fixed order and fail fast with a distinct
// sentinel: existence, validity window, minimum subtotal, usage cap.
type Validator struct {
	repo *Repository
}

func NewValidator(repo *Repository) *Validator {
	return &Validator{repo: repo}
}

func (v *Validator) Validate(ctx context.Context, code string, subtotal int64) (int64, error) {
	c, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("load coupon: %w", err)
	}

	if err := check(c, subtotal, time.Now().UTC()); err != nil {
		return 0, err
	}
	return c.Discount(subtotal), nil
}

// Redeem re-validates under a row lock and bumps the usage counter. It must
// run inside the checkout transaction: a cap reached between cart validation
// and commit fails this checkout instead of over-redeeming the code.
func (v *Validator) Redeem(ctx context.Context, tx *sql.Tx, code string, subtotal int64) (int64, error) {
	c, err := v.repo.GetForUpdate(ctx, tx, code)
	if err != nil {
		return 0, fmt.Errorf("lock coupon: %w", err)
	}

	if err := check(c, subtotal, time.Now().UTC()); err != nil {
		return 0, err
	}

	if err := v.repo.MarkRedeemed(ctx, tx, code); err != nil {
		return 0, fmt.Errorf("mark coupon redeemed: %w", err)
	}
	return c.Discount(subtotal), nil
}

func check(c *domain.Coupon, subtotal int64, now time.Time) error {
	if c == nil || !c.Active {
		return domain.ErrCouponNotFound
	}
	if now.Before(c.StartsAt) {
		return domain.ErrCouponExpired
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return domain.ErrCouponExpired
	}
	if c.MinSubtotal > 0 && subtotal < c.MinSubtotal {
		return domain.ErrMinimumNotMet
	}
	if c.MaxRedemptions > 0 && c.Redemptions >= c.MaxRedemptions {
		return domain.ErrUsageExhausted
	}
	return nil
}

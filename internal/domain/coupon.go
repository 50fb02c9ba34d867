package domain

import "time"

type CouponKind string

const (
	CouponPercent CouponKind = "percent"
	CouponFixed   CouponKind = "fixed"
)

// Coupon.Value is percent points for percent coupons and paisa for fixed ones.
// MaxRedemptions of 0 means uncapped; a nil EndsAt means the window never closes.
type Coupon struct {
	Code           string     `json:"code"`
	Kind           CouponKind `json:"kind"`
	Value          int64      `json:"value"`
	MinSubtotal    int64      `json:"min_subtotal_paisa"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	MaxRedemptions int        `json:"max_redemptions"`
	Redemptions    int        `json:"redemptions"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Discount computes the coupon's discount for a subtotal, floored to the
// paisa and clamped so it never exceeds the subtotal.
func (c *Coupon) Discount(subtotal int64) int64 {
	var d int64
	switch c.Kind {
	case CouponPercent:
		d = subtotal * c.Value / 100
	case CouponFixed:
		d = c.Value
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}

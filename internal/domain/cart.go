package domain

import "time"

// CartLine references a product weakly: prices are always re-read from the
// catalog when totals are computed, never stored on the line.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	CouponCode string     `json:"coupon_code,omitempty"`
	Lines      []CartLine `json:"lines"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Totals is the money breakdown for a cart or an order, all integer paisa.
// Total = Subtotal - Discount + Shipping + Tax.
type Totals struct {
	SubtotalPaisa int64 `json:"subtotal_paisa"`
	DiscountPaisa int64 `json:"discount_paisa"`
	ShippingPaisa int64 `json:"shipping_paisa"`
	TaxPaisa      int64 `json:"tax_paisa"`
	TotalPaisa    int64 `json:"total_paisa"`
}

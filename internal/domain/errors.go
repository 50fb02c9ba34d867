package domain

import "errors"

// Caller errors: bad input, surfaced immediately.
var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrEmptyCart       = errors.New("cart is empty")
)

// Conflict errors: state moved under the caller; refresh and retry.
var (
	ErrOutOfStock        = errors.New("requested quantity exceeds available stock")
	ErrStockChanged      = errors.New("stock changed since the cart was built")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

// Coupon validation failures, in check order.
var (
	ErrCouponNotFound = errors.New("coupon not found")
	ErrCouponExpired  = errors.New("coupon is outside its validity window")
	ErrMinimumNotMet  = errors.New("cart subtotal below coupon minimum")
	ErrUsageExhausted = errors.New("coupon usage cap exhausted")
)

// External collaborator failures: never silently discarded.
var (
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrRefundFailed              = errors.New("refund request failed")
)

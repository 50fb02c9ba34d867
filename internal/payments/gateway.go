package payments

import (
	"context"

	"github.com/chinarbooks/storefront/internal/domain"
)

// Gateway is the payment collaborator the core talks to. The core never
// sees gateway wire formats; it hands over an order and gets back opaque
// references.
type Gateway interface {
	// Initiate opens a payment session for a pending order and returns the
	// gateway's order reference.
	Initiate(ctx context.Context, order *domain.Order) (string, error)

	// VerifySignature checks a payment callback's signature over the
	// gateway order ref and payment id.
	VerifySignature(gatewayOrderRef, paymentID, signature string) bool

	// Refund returns the order's grand total to the payer.
	Refund(ctx context.Context, order *domain.Order) error
}

package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/chinarbooks/storefront/internal/domain"
)

// RazorpayGateway talks to a Razorpay-compatible HTTP API. Calls carry a
// bounded timeout; refunds additionally go through a circuit breaker since
// they are retried by admins against a collaborator that may be down.
type RazorpayGateway struct {
	client    *resty.Client
	keyID     string
	keySecret string
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

func NewRazorpayGateway(baseURL, keyID, keySecret string, logger *slog.Logger) *RazorpayGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(10 * time.Second).
		SetRetryCount(0)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "razorpay-refund",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && counts.TotalFailures*10 >= counts.Requests*6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &RazorpayGateway{
		client:    client,
		keyID:     keyID,
		keySecret: keySecret,
		breaker:   breaker,
		logger:    logger,
	}
}

type gatewayOrderResponse struct {
	ID string `json:"id"`
}

func (g *RazorpayGateway) Initiate(ctx context.Context, order *domain.Order) (string, error) {
	var result gatewayOrderResponse

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"amount":          order.Totals.TotalPaisa,
			"currency":        "INR",
			"receipt":         "order_" + order.ID,
			"payment_capture": 1,
		}).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return "", fmt.Errorf("initiate payment session: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode())
	}
	if result.ID == "" {
		return "", fmt.Errorf("gateway returned no order reference")
	}

	g.logger.Info("payment session initiated", "order_id", order.ID, "gateway_order_ref", result.ID)
	return result.ID, nil
}

// VerifySignature recomputes the HMAC-SHA256 of "<gatewayOrderRef>|<paymentID>"
// with the key secret and compares in constant time.
func (g *RazorpayGateway) VerifySignature(gatewayOrderRef, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(gatewayOrderRef + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *RazorpayGateway) Refund(ctx context.Context, order *domain.Order) error {
	_, err := g.breaker.Execute(func() (any, error) {
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"amount": order.Totals.TotalPaisa,
				"notes":  map[string]string{"order_id": order.ID},
			}).
			Post("/payments/" + order.GatewayPaymentID + "/refund")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode())
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrRefundFailed, err)
	}

	g.logger.Info("refund accepted", "order_id", order.ID, "payment_id", order.GatewayPaymentID)
	return nil
}

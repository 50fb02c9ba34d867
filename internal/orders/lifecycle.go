package orders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chinarbooks/storefront/internal/catalog"
	"github.com/chinarbooks/storefront/internal/domain"
	"github.com/chinarbooks/storefront/internal/payments"
)

// Publisher is the slice of the Kafka producer the lifecycle needs; nil
// means events are dropped (tests, degraded deployments).
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Lifecycle drives the order state machine:
//
//	pending -> paid -> packed -> shipped -> delivered
//
// with cancelled (before shipped, restocks) and refunded (after payment,
// gateway call first) as the only side exits. Every applied transition is a
// status compare-and-swap, so a transition that lost a race is rejected
// instead of double-applying its side effects.
type Lifecycle struct {
	db       *sql.DB
	repo     *Repository
	products *catalog.Repository
	gateway  payments.Gateway
	producer Publisher
	logger   *slog.Logger
}

func NewLifecycle(db *sql.DB, repo *Repository, products *catalog.Repository, gateway payments.Gateway, producer Publisher, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		db:       db,
		repo:     repo,
		products: products,
		gateway:  gateway,
		producer: producer,
		logger:   logger,
	}
}

// MarkPaid applies a verified payment callback. The signature must check
// out against the gateway secret and the captured amount must equal the
// order's grand total before anything moves; on either mismatch the order
// stays pending and the caller gets ErrPaymentVerificationFailed.
func (l *Lifecycle) MarkPaid(ctx context.Context, gatewayOrderRef, paymentID, signature string, amountPaisa int64) (*domain.Order, error) {
	order, err := l.repo.GetByGatewayRef(ctx, gatewayOrderRef)
	if err != nil {
		return nil, fmt.Errorf("load order for callback: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if !l.gateway.VerifySignature(gatewayOrderRef, paymentID, signature) {
		l.logger.Error("payment signature mismatch", "order_id", order.ID, "gateway_order_ref", gatewayOrderRef)
		return nil, domain.ErrPaymentVerificationFailed
	}
	if amountPaisa != order.Totals.TotalPaisa {
		l.logger.Error("payment amount mismatch",
			"order_id", order.ID, "expected_paisa", order.Totals.TotalPaisa, "got_paisa", amountPaisa)
		return nil, domain.ErrPaymentVerificationFailed
	}

	applied, err := l.repo.MarkPaid(ctx, order.ID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if !applied {
		return nil, domain.ErrInvalidTransition
	}

	l.emit(ctx, order, domain.EventOrderPaid, "")
	l.logger.Info("order paid", "order_id", order.ID, "payment_id", paymentID)
	return l.repo.GetByID(ctx, order.ID)
}

// Advance applies an admin forward transition (packed, shipped, delivered).
// Shipped requires shipment details; none of these touch stock, which was
// committed at checkout.
func (l *Lifecycle) Advance(ctx context.Context, id string, target domain.OrderStatus, shipment *domain.Shipment) (*domain.Order, error) {
	order, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var applied bool
	var event domain.OrderEventKind
	trackingNo := ""

	switch target {
	case domain.OrderStatusPacked:
		from := domain.OrderStatusPaid
		// COD orders skip the payment step and go straight to fulfillment
		if order.PaymentMethod == domain.PaymentMethodCOD && order.Status == domain.OrderStatusPending {
			from = domain.OrderStatusPending
		}
		applied, err = l.repo.TransitionStatus(ctx, id, from, target)
		event = domain.EventOrderPacked
	case domain.OrderStatusShipped:
		if shipment == nil || shipment.TrackingNo == "" {
			return nil, fmt.Errorf("%w: shipped requires carrier and tracking number", domain.ErrInvalidTransition)
		}
		applied, err = l.repo.TransitionToShipped(ctx, id, shipment.Carrier, shipment.TrackingNo)
		event = domain.EventOrderShipped
		trackingNo = shipment.TrackingNo
	case domain.OrderStatusDelivered:
		applied, err = l.repo.TransitionToDelivered(ctx, id)
		event = domain.EventOrderDelivered
	default:
		return nil, domain.ErrInvalidTransition
	}

	if err != nil {
		return nil, fmt.Errorf("transition to %s: %w", target, err)
	}
	if !applied {
		return nil, domain.ErrInvalidTransition
	}

	l.emit(ctx, order, event, trackingNo)
	l.logger.Info("order transitioned", "order_id", id, "from", order.Status, "to", target)
	return l.repo.GetByID(ctx, id)
}

// Cancel exits the lifecycle before shipping and restores reserved stock.
// The restock and the status swap share one transaction, and the swap's
// CAS means a second cancel restocks nothing.
func (l *Lifecycle) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	order, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if from != domain.OrderStatusPending && from != domain.OrderStatusPaid {
		return nil, domain.ErrInvalidTransition
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	applied, err := l.repo.TransitionStatusIn(ctx, tx, id, from, domain.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if !applied {
		return nil, domain.ErrInvalidTransition
	}

	for _, item := range order.Items {
		if err := l.products.AdjustStockIn(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, fmt.Errorf("restock %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	l.emit(ctx, order, domain.EventOrderCancelled, "")
	l.logger.Info("order cancelled", "order_id", id, "restocked_items", len(order.Items))
	return l.repo.GetByID(ctx, id)
}

// Refund exits the lifecycle after payment. The gateway call happens first;
// if the collaborator refuses, the order keeps its status and the failure
// is reported, never swallowed.
func (l *Lifecycle) Refund(ctx context.Context, id string) (*domain.Order, error) {
	order, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case domain.OrderStatusPaid, domain.OrderStatusPacked, domain.OrderStatusShipped, domain.OrderStatusDelivered:
	default:
		return nil, domain.ErrInvalidTransition
	}
	if order.GatewayPaymentID == "" {
		return nil, fmt.Errorf("%w: order has no gateway payment", domain.ErrRefundFailed)
	}

	if err := l.gateway.Refund(ctx, order); err != nil {
		l.logger.Error("refund rejected by gateway", "order_id", id, "error", err)
		return nil, err
	}

	applied, err := l.repo.TransitionStatus(ctx, id, order.Status, domain.OrderStatusRefunded)
	if err != nil {
		return nil, fmt.Errorf("mark order refunded: %w", err)
	}
	if !applied {
		return nil, domain.ErrInvalidTransition
	}

	if err := l.repo.SetPaymentStatus(ctx, id, domain.PaymentStatusRefunded); err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	l.emit(ctx, order, domain.EventOrderRefunded, "")
	l.logger.Info("order refunded", "order_id", id)
	return l.repo.GetByID(ctx, id)
}

func (l *Lifecycle) load(ctx context.Context, id string) (*domain.Order, error) {
	order, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// emit enqueues the notification event; delivery is the notifier's problem.
func (l *Lifecycle) emit(ctx context.Context, order *domain.Order, kind domain.OrderEventKind, trackingNo string) {
	if l.producer == nil {
		return
	}

	event := domain.OrderEvent{
		Kind:       kind,
		OrderID:    order.ID,
		Email:      order.Email,
		TotalPaisa: order.Totals.TotalPaisa,
		ItemCount:  len(order.Items),
		TrackingNo: trackingNo,
		Timestamp:  time.Now().UTC(),
	}
	if err := l.producer.Publish(ctx, order.ID, event); err != nil {
		l.logger.Error("failed to publish order event", "error", err, "order_id", order.ID, "kind", kind)
	}
}

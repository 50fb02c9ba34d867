package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/chinarbooks/storefront/internal/cart"
	"github.com/chinarbooks/storefront/internal/catalog"
	"github.com/chinarbooks/storefront/internal/coupon"
	"github.com/chinarbooks/storefront/internal/domain"
	"github.com/chinarbooks/storefront/internal/orders"
	"github.com/chinarbooks/storefront/internal/payments"
	"github.com/chinarbooks/storefront/internal/pricing"
)

var ErrInvalidPaymentMethod = errors.New("unsupported payment method")

// gatewayTimeout bounds the payment session call. On expiry the order stays
// pending for reconciliation; money may have moved even if the confirmation
// did not arrive, so nothing is rolled back.
const gatewayTimeout = 10 * time.Second

type Request struct {
	CartID          string               `json:"cart_id"`
	CustomerID      string               `json:"customer_id,omitempty"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone"`
	ShippingAddress domain.Address       `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
}

// Service turns a cart into an order. Stock decrements, coupon redemption,
// the order insert and the cart clear share one transaction: either the
// whole checkout commits or none of it does.
type Service struct {
	db        *sql.DB
	carts     *cart.Repository
	cartSvc   *cart.Service
	products  *catalog.Repository
	validator *coupon.Validator
	orders    *orders.Repository
	gateway   payments.Gateway
	producer  orders.Publisher
	rate      pricing.RateFunc
	homeState string
	logger    *slog.Logger
}

func NewService(
	db *sql.DB,
	carts *cart.Repository,
	cartSvc *cart.Service,
	products *catalog.Repository,
	validator *coupon.Validator,
	orderRepo *orders.Repository,
	gateway payments.Gateway,
	producer orders.Publisher,
	rate pricing.RateFunc,
	homeState string,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:        db,
		carts:     carts,
		cartSvc:   cartSvc,
		products:  products,
		validator: validator,
		orders:    orderRepo,
		gateway:   gateway,
		producer:  producer,
		rate:      rate,
		homeState: homeState,
		logger:    logger,
	}
}

func (s *Service) Place(ctx context.Context, req Request) (*domain.Order, error) {
	if req.PaymentMethod != domain.PaymentMethodGateway && req.PaymentMethod != domain.PaymentMethodCOD {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}

	// The shipping tier is derived from the address state, never taken from
	// the request.
	req.ShippingAddress.Region = pricing.TierFor(s.homeState, req.ShippingAddress.State)

	c, err := s.cartSvc.Get(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	lines, err := s.cartSvc.Resolve(ctx, c)
	if err != nil {
		return nil, err
	}

	// Pre-flight stock check against the live catalog. The transaction
	// below re-checks under the row lock; this pass exists to fail cheap
	// and to name the product that drifted.
	for _, line := range lines {
		if line.Quantity > line.Product.Stock {
			return nil, fmt.Errorf("%w: product %s", domain.ErrStockChanged, line.Product.ID)
		}
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.Product.EffectivePrice() * int64(line.Quantity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Row locks are taken in product-ID order so two checkouts sharing
	// products cannot deadlock on each other.
	reserve := append([]cart.ResolvedLine(nil), lines...)
	sort.Slice(reserve, func(i, j int) bool { return reserve[i].Product.ID < reserve[j].Product.ID })

	// Guarded decrements: losing the race for the last unit affects zero
	// rows, surfaces as stock drift, and rolls the whole checkout back.
	for _, line := range reserve {
		if err := s.products.AdjustStockIn(ctx, tx, line.Product.ID, -line.Quantity); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: product %s", domain.ErrStockChanged, line.Product.ID)
			}
			return nil, fmt.Errorf("reserve stock for %s: %w", line.Product.ID, err)
		}
	}

	// Coupon recheck at commit time, under the coupon row lock.
	var discount int64
	if c.CouponCode != "" {
		discount, err = s.validator.Redeem(ctx, tx, c.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	priced := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		priced = append(priced, pricing.Line{
			UnitPrice:  line.Product.EffectivePrice(),
			Quantity:   line.Quantity,
			TaxRateBps: line.Product.TaxRateBps,
		})
	}
	totals := pricing.Compute(priced, discount, req.ShippingAddress.Region, s.rate)

	order := &domain.Order{
		CustomerID:      req.CustomerID,
		Email:           req.Email,
		Phone:           req.Phone,
		ShippingAddress: req.ShippingAddress,
		Items:           snapshotItems(lines),
		Totals:          totals,
		CouponCode:      c.CouponCode,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   domain.PaymentStatusUnpaid,
	}

	if err := s.orders.CreateIn(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.ClearIn(ctx, tx, c.ID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if req.PaymentMethod == domain.PaymentMethodGateway {
		s.initiatePayment(ctx, order)
	}

	s.emit(ctx, order)
	s.logger.Info("order placed",
		"order_id", order.ID,
		"cart_id", c.ID,
		"total_paisa", order.Totals.TotalPaisa,
		"payment_method", order.PaymentMethod)
	return order, nil
}

// initiatePayment opens the gateway session after the order is committed.
// A gateway failure here is reported but does not undo the checkout; the
// order stays pending for later reconciliation.
func (s *Service) initiatePayment(ctx context.Context, order *domain.Order) {
	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	ref, err := s.gateway.Initiate(gwCtx, order)
	if err != nil {
		s.logger.Error("payment initiation failed, order left pending", "error", err, "order_id", order.ID)
		return
	}

	if err := s.orders.SetGatewayOrderRef(ctx, order.ID, ref); err != nil {
		s.logger.Error("failed to persist gateway order ref", "error", err, "order_id", order.ID, "ref", ref)
		return
	}
	order.GatewayOrderRef = ref
}

func (s *Service) emit(ctx context.Context, order *domain.Order) {
	if s.producer == nil {
		return
	}

	event := domain.OrderEvent{
		Kind:       domain.EventOrderPlaced,
		OrderID:    order.ID,
		Email:      order.Email,
		TotalPaisa: order.Totals.TotalPaisa,
		ItemCount:  len(order.Items),
		Timestamp:  order.CreatedAt,
	}
	if err := s.producer.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
	}
}

func snapshotItems(lines []cart.ResolvedLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		price := line.Product.EffectivePrice()
		items = append(items, domain.OrderItem{
			ProductID:      line.Product.ID,
			TitleSnapshot:  line.Product.Title,
			SKUSnapshot:    line.Product.SKU,
			UnitPricePaisa: price,
			Quantity:       line.Quantity,
			LineTotalPaisa: price * int64(line.Quantity),
		})
	}
	return items
}

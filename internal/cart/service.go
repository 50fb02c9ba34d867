package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/chinarbooks/storefront/internal/catalog"
	"github.com/chinarbooks/storefront/internal/coupon"
	"github.com/chinarbooks/storefront/internal/domain"
	"github.com/chinarbooks/storefront/internal/pricing"
)

// Service owns cart mutation rules: quantities merge per product, every
// stock check and every price read goes against the live catalog, and at
// most one coupon is applied at a time.
type Service struct {
	carts     *Repository
	products  *catalog.Repository
	validator *coupon.Validator
	rate      pricing.RateFunc
}

func NewService(carts *Repository, products *catalog.Repository, validator *coupon.Validator, rate pricing.RateFunc) *Service {
	return &Service{
		carts:     carts,
		products:  products,
		validator: validator,
		rate:      rate,
	}
}

// ResolvedLine is a cart line joined against the current catalog row.
type ResolvedLine struct {
	Product  domain.Product
	Quantity int
}

// TotalsResult carries the breakdown plus the reason an applied coupon did
// not count, so cart views can render "coupon expired" instead of failing.
type TotalsResult struct {
	domain.Totals
	CouponCode  string `json:"coupon_code,omitempty"`
	CouponError string `json:"coupon_error,omitempty"`
}

func (s *Service) Add(ctx context.Context, cartID, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	c, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}

	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return err
	}

	merged := qty
	for _, line := range c.Lines {
		if line.ProductID == productID {
			merged += line.Quantity
			break
		}
	}

	if merged > p.Stock {
		return domain.ErrOutOfStock
	}

	return s.carts.SetLine(ctx, cartID, productID, merged)
}

func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, qty int) error {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}

	if qty <= 0 {
		return s.carts.RemoveLine(ctx, c.ID, productID)
	}

	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.Stock {
		return domain.ErrOutOfStock
	}

	return s.carts.SetLine(ctx, cartID, productID, qty)
}

func (s *Service) Remove(ctx context.Context, cartID, productID string) error {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}
	return s.carts.RemoveLine(ctx, c.ID, productID)
}

// ApplyCoupon validates the code against the cart's current subtotal and
// stores it, replacing any previously applied code. Coupons never stack.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) error {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}

	lines, err := s.Resolve(ctx, c)
	if err != nil {
		return err
	}

	if _, err := s.validator.Validate(ctx, code, subtotalOf(lines)); err != nil {
		return err
	}

	return s.carts.SetCoupon(ctx, cartID, code)
}

func (s *Service) RemoveCoupon(ctx context.Context, cartID string) error {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}
	return s.carts.SetCoupon(ctx, c.ID, "")
}

// Totals recomputes the breakdown from live catalog prices. A coupon that
// no longer validates contributes zero discount and a reason; the view
// still renders.
func (s *Service) Totals(ctx context.Context, cartID string, region domain.RegionTier) (*TotalsResult, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	lines, err := s.Resolve(ctx, c)
	if err != nil {
		return nil, err
	}

	result := &TotalsResult{CouponCode: c.CouponCode}

	var discount int64
	if c.CouponCode != "" {
		discount, err = s.validator.Validate(ctx, c.CouponCode, subtotalOf(lines))
		if err != nil {
			if !isCouponRejection(err) {
				return nil, err
			}
			discount = 0
			result.CouponError = err.Error()
		}
	}

	result.Totals = pricing.Compute(priceLines(lines), discount, region, s.rate)
	return result, nil
}

// Resolve joins cart lines against the catalog, dropping nothing: a line
// whose product vanished or was archived fails the whole read because the
// cart no longer prices consistently.
func (s *Service) Resolve(ctx context.Context, c *domain.Cart) ([]ResolvedLine, error) {
	lines := make([]ResolvedLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		p, err := s.activeProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve line %s: %w", line.ProductID, err)
		}
		lines = append(lines, ResolvedLine{Product: *p, Quantity: line.Quantity})
	}
	return lines, nil
}

func (s *Service) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.load(ctx, cartID)
}

func (s *Service) load(ctx context.Context, cartID string) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCartNotFound
	}
	return c, nil
}

func (s *Service) activeProduct(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Status != domain.ProductStatusActive {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func subtotalOf(lines []ResolvedLine) int64 {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Product.EffectivePrice() * int64(l.Quantity)
	}
	return subtotal
}

func priceLines(lines []ResolvedLine) []pricing.Line {
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		priced = append(priced, pricing.Line{
			UnitPrice:  l.Product.EffectivePrice(),
			Quantity:   l.Quantity,
			TaxRateBps: l.Product.TaxRateBps,
		})
	}
	return priced
}

func isCouponRejection(err error) bool {
	return errors.Is(err, domain.ErrCouponNotFound) ||
		errors.Is(err, domain.ErrCouponExpired) ||
		errors.Is(err, domain.ErrMinimumNotMet) ||
		errors.Is(err, domain.ErrUsageExhausted)
}

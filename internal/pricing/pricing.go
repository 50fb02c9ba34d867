package pricing

import (
	"strings"

	"github.com/chinarbooks/storefront/internal/domain"
)

// RateFunc computes shipping in paisa for a destination tier and subtotal.
type RateFunc func(region domain.RegionTier, subtotal int64) int64

// TierFor derives the shipping tier from the destination state. The tier is
// never taken from the client; an address in the home state ships at the
// in-region rate, everywhere else pays the rest-of-country rate.
func TierFor(homeState, state string) domain.RegionTier {
	if strings.EqualFold(strings.TrimSpace(state), strings.TrimSpace(homeState)) {
		return domain.RegionInRegion
	}
	return domain.RegionRestOfCountry
}

// TieredRates is the standard two-tier table: free at or above the
// threshold, otherwise a flat in-region or rest-of-country rate.
func TieredRates(inRegion, restOfCountry, freeThreshold int64) RateFunc {
	return func(region domain.RegionTier, subtotal int64) int64 {
		if subtotal >= freeThreshold {
			return 0
		}
		if region == domain.RegionInRegion {
			return inRegion
		}
		return restOfCountry
	}
}

// Line is a priced cart line: quantity times the live effective price, plus
// the product's tax rate in basis points.
type Line struct {
	UnitPrice  int64
	Quantity   int
	TaxRateBps int64
}

// Compute assembles the money breakdown for a set of priced lines. The
// discount is spread across lines proportionally before per-line tax is
// applied, all in floor-division integer paisa; no floats anywhere.
func Compute(lines []Line, discount int64, region domain.RegionTier, rate RateFunc) domain.Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.UnitPrice * int64(l.Quantity)
	}

	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	var tax int64
	if subtotal > 0 {
		for _, l := range lines {
			lineAmount := l.UnitPrice * int64(l.Quantity)
			lineDiscount := discount * lineAmount / subtotal
			tax += (lineAmount - lineDiscount) * l.TaxRateBps / 10000
		}
	}

	shipping := rate(region, subtotal)

	return domain.Totals{
		SubtotalPaisa: subtotal,
		DiscountPaisa: discount,
		ShippingPaisa: shipping,
		TaxPaisa:      tax,
		TotalPaisa:    subtotal - discount + shipping + tax,
	}
}

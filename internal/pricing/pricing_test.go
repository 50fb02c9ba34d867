package pricing

import (
	"testing"

	"github.com/chinarbooks/storefront/internal/domain"
)

func standardRates() RateFunc {
	return TieredRates(5000, 10000, 150000)
}

func TestTierFor(t *testing.T) {
	home := "Jammu and Kashmir"

	t.Run("home state ships in-region", func(t *testing.T) {
		if got := TierFor(home, "Jammu and Kashmir"); got != domain.RegionInRegion {
			t.Errorf("expected in_region, got %s", got)
		}
	})

	t.Run("comparison ignores case and padding", func(t *testing.T) {
		if got := TierFor(home, "  jammu AND kashmir "); got != domain.RegionInRegion {
			t.Errorf("expected in_region, got %s", got)
		}
	})

	t.Run("other states ship rest-of-country", func(t *testing.T) {
		if got := TierFor(home, "Rajasthan"); got != domain.RegionRestOfCountry {
			t.Errorf("expected rest_of_country, got %s", got)
		}
	})

	t.Run("empty state ships rest-of-country", func(t *testing.T) {
		if got := TierFor(home, ""); got != domain.RegionRestOfCountry {
			t.Errorf("expected rest_of_country, got %s", got)
		}
	})
}

func TestTieredRates(t *testing.T) {
	rate := standardRates()

	t.Run("free shipping at threshold", func(t *testing.T) {
		if got := rate(domain.RegionRestOfCountry, 150000); got != 0 {
			t.Errorf("expected free shipping, got %d", got)
		}
	})

	t.Run("in-region below threshold", func(t *testing.T) {
		if got := rate(domain.RegionInRegion, 100000); got != 5000 {
			t.Errorf("expected 5000, got %d", got)
		}
	})

	t.Run("rest of country below threshold", func(t *testing.T) {
		if got := rate(domain.RegionRestOfCountry, 100000); got != 10000 {
			t.Errorf("expected 10000, got %d", got)
		}
	})
}

func TestCompute(t *testing.T) {
	rate := standardRates()

	t.Run("worked example with percent coupon", func(t *testing.T) {
		// 2 x 50000 + 1 x 30000 with a 10% discount: free shipping above
		// the threshold, zero-rated books.
		lines := []Line{
			{UnitPrice: 50000, Quantity: 2},
			{UnitPrice: 30000, Quantity: 1},
		}

		totals := Compute(lines, 13000, domain.RegionRestOfCountry, TieredRates(5000, 10000, 100000))

		if totals.SubtotalPaisa != 130000 {
			t.Errorf("expected subtotal 130000, got %d", totals.SubtotalPaisa)
		}
		if totals.DiscountPaisa != 13000 {
			t.Errorf("expected discount 13000, got %d", totals.DiscountPaisa)
		}
		if totals.ShippingPaisa != 0 {
			t.Errorf("expected free shipping, got %d", totals.ShippingPaisa)
		}
		if totals.TotalPaisa != 117000 {
			t.Errorf("expected total 117000, got %d", totals.TotalPaisa)
		}
	})

	t.Run("totals identity holds", func(t *testing.T) {
		cases := []struct {
			name     string
			lines    []Line
			discount int64
			region   domain.RegionTier
		}{
			{"no discount", []Line{{UnitPrice: 25000, Quantity: 3}}, 0, domain.RegionInRegion},
			{"partial discount", []Line{{UnitPrice: 40000, Quantity: 1}, {UnitPrice: 15000, Quantity: 2}}, 20000, domain.RegionRestOfCountry},
			{"discount exceeds subtotal", []Line{{UnitPrice: 10000, Quantity: 1}}, 99999, domain.RegionRestOfCountry},
			{"with tax", []Line{{UnitPrice: 50000, Quantity: 2, TaxRateBps: 500}}, 10000, domain.RegionInRegion},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				totals := Compute(tc.lines, tc.discount, tc.region, rate)

				sum := totals.SubtotalPaisa - totals.DiscountPaisa + totals.ShippingPaisa + totals.TaxPaisa
				if totals.TotalPaisa != sum {
					t.Errorf("identity broken: total %d != %d", totals.TotalPaisa, sum)
				}
				if totals.TotalPaisa < 0 {
					t.Errorf("negative total %d", totals.TotalPaisa)
				}
				if totals.DiscountPaisa > totals.SubtotalPaisa {
					t.Errorf("discount %d exceeds subtotal %d", totals.DiscountPaisa, totals.SubtotalPaisa)
				}
			})
		}
	})

	t.Run("tax applies to discounted amount", func(t *testing.T) {
		// 100000 at 5% tax with a 20000 discount: tax on 80000 is 4000.
		lines := []Line{{UnitPrice: 100000, Quantity: 1, TaxRateBps: 500}}

		totals := Compute(lines, 20000, domain.RegionInRegion, rate)

		if totals.TaxPaisa != 4000 {
			t.Errorf("expected tax 4000, got %d", totals.TaxPaisa)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		totals := Compute(nil, 0, domain.RegionRestOfCountry, rate)

		if totals.SubtotalPaisa != 0 {
			t.Errorf("expected zero subtotal, got %d", totals.SubtotalPaisa)
		}
		// an empty cart is below the free-shipping threshold but has
		// nothing to ship-price against; shipping still computes
		if totals.TotalPaisa != totals.ShippingPaisa {
			t.Errorf("expected total %d to equal shipping, got %d", totals.ShippingPaisa, totals.TotalPaisa)
		}
	})
}

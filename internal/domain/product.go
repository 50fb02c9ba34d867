package domain

import "time"

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// Product money fields are integer paisa. SalePaisa of 0 means no sale price;
// EffectivePrice returns the amount a buyer actually pays right now.
type Product struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Slug              string        `json:"slug"`
	SKU               string        `json:"sku"`
	Language          string        `json:"language"`
	Format            string        `json:"format"`
	MRPPaisa          int64         `json:"mrp_paisa"`
	SalePaisa         int64         `json:"sale_paisa,omitempty"`
	TaxRateBps        int64         `json:"tax_rate_bps"`
	Stock             int           `json:"stock"`
	LowStockThreshold int           `json:"low_stock_threshold"`
	Status            ProductStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (p *Product) EffectivePrice() int64 {
	if p.SalePaisa > 0 && p.SalePaisa < p.MRPPaisa {
		return p.SalePaisa
	}
	return p.MRPPaisa
}

package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chinarbooks/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const productColumns = `
	id, title, slug, sku, language, format,
	mrp_paisa, sale_paisa, tax_rate_bps,
	stock, low_stock_threshold, status, created_at, updated_at
`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.SKU, &p.Language, &p.Format,
		&p.MRPPaisa, &p.SalePaisa, &p.TaxRateBps,
		&p.Stock, &p.LowStockThreshold, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New().String()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = domain.ProductStatusDraft
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, title, slug, sku, language, format,
			mrp_paisa, sale_paisa, tax_rate_bps,
			stock, low_stock_threshold, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`, p.ID, p.Title, p.Slug, p.SKU, p.Language, p.Format,
		p.MRPPaisa, p.SalePaisa, p.TaxRateBps,
		p.Stock, p.LowStockThreshold, p.Status, now)
	return err
}

// Update edits the catalog fields of a product. Stock is deliberately not
// touched here; it only moves through AdjustStock.
func (r *Repository) Update(ctx context.Context, p *domain.Product) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET title = $2, slug = $3, sku = $4, language = $5, format = $6,
			mrp_paisa = $7, sale_paisa = $8, tax_rate_bps = $9,
			low_stock_threshold = $10, status = $11, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Title, p.Slug, p.SKU, p.Language, p.Format,
		p.MRPPaisa, p.SalePaisa, p.TaxRateBps,
		p.LowStockThreshold, p.Status)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)

	p, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE status = $1
		ORDER BY created_at DESC
	`, domain.ProductStatusActive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectProducts(rows)
}

func (r *Repository) ListLowStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE status = $1 AND stock <= low_stock_threshold
		ORDER BY stock ASC
	`, domain.ProductStatusActive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AdjustStock moves stock by delta (negative to reserve, positive to
// restock). The guard keeps stock from ever going negative: a reservation
// that would do so affects zero rows and fails with ErrInsufficientStock.
func (r *Repository) AdjustStock(ctx context.Context, id string, delta int) error {
	return adjustStock(ctx, r.db, id, delta)
}

// AdjustStockIn is AdjustStock inside a caller-owned transaction; checkout
// uses it so stock decrements commit or roll back with the order.
func (r *Repository) AdjustStockIn(ctx context.Context, tx *sql.Tx, id string, delta int) error {
	return adjustStock(ctx, tx, id, delta)
}

func adjustStock(ctx context.Context, ex execer, id string, delta int) error {
	result, err := ex.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
	`, id, delta)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

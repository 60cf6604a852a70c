package orders

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ProductColumns is the select list ScanProduct expects.
const ProductColumns = `id::text, COALESCE(category_id::text, ''), name, COALESCE(description, ''), COALESCE(variant_type, ''),
	base_price, stock, sizes, variant_prices, images, created_at, updated_at`

// ScanProduct reads one product row and normalizes its variant price map.
func ScanProduct(row pgx.Row) (*Product, error) {
	var (
		p   Product
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.VariantType,
		&p.BasePrice, &p.Stock, &p.Sizes, &raw, &p.Images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	vp, err := ParseVariantPrices(raw)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", p.ID, err)
	}
	p.VariantPrices = vp
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

package catalog

import (
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ProductInput struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	VariantType   string               `json:"variantType"`
	Sizes         []string             `json:"sizes"`
	VariantPrices orders.VariantPrices `json:"variantPrices"`
	BasePrice     decimal.Decimal      `json:"basePrice"`
	Stock         int                  `json:"stock"`
	Images        []string             `json:"images"`
	CategoryID    string               `json:"categoryId"`
}

// ProductPatch carries the fields of a partial update; nil means unchanged.
type ProductPatch struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	VariantType   *string               `json:"variantType"`
	Sizes         *[]string             `json:"sizes"`
	VariantPrices *orders.VariantPrices `json:"variantPrices"`
	BasePrice     *decimal.Decimal      `json:"basePrice"`
	Stock         *int                  `json:"stock"`
	Images        *[]string             `json:"images"`
	CategoryID    *string               `json:"categoryId"`
}

func (p ProductPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.VariantType == nil && p.Sizes == nil &&
		p.VariantPrices == nil && p.BasePrice == nil && p.Stock == nil && p.Images == nil && p.CategoryID == nil
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

type ProductPage struct {
	Meta Meta             `json:"meta"`
	Data []orders.Product `json:"data"`
}

package orders

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	CategoryID    string          `json:"categoryId"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	VariantType   string          `json:"variantType,omitempty"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	Stock         int             `json:"stock"`
	Sizes         []string        `json:"sizes"`
	VariantPrices VariantPrices   `json:"variantPrices"`
	Images        []string        `json:"images"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (p *Product) HasSize(size string) bool {
	return slices.Contains(p.Sizes, size)
}

func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{ID: p.ID, Name: p.Name, Images: p.Images, BasePrice: p.BasePrice}
}

// ProductSummary is the product detail attached to order items for display.
type ProductSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Images    []string        `json:"images"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

type Order struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	ShippingAddress string          `json:"shippingAddress"`
	Phone           string          `json:"phone"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          Status          `json:"status"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
	// ProductID is empty once the referenced product has been deleted.
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	SelectedSize string          `json:"selectedSize"`
	Product      *ProductSummary `json:"product,omitempty"`
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

type PlaceOrderInput struct {
	Items           []CartLine `json:"items"`
	ShippingAddress string     `json:"shippingAddress"`
	Phone           string     `json:"phone"`

	// IdempotencyKey is supplied out of band (request header).
	IdempotencyKey string `json:"-"`
}

// StatusSnapshot is the cached view of an order's status.
type StatusSnapshot struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Status     Status    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (o *Order) Snapshot() StatusSnapshot {
	return StatusSnapshot{OrderID: o.ID, CustomerID: o.CustomerID, Status: o.Status, UpdatedAt: o.UpdatedAt}
}

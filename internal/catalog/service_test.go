package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catID = "6a1f0d2e-9b7c-4f51-8a3e-2c4d5e6f7a80"

// stubRepo records calls; only the paths the service decides on are modelled.
type stubRepo struct {
	categories map[string]bool
	created    *ProductInput
	patched    *ProductPatch
	listTotal  int
}

func (r *stubRepo) CreateCategory(ctx context.Context, name string) (*Category, error) {
	return &Category{ID: "new", Name: name}, nil
}
func (r *stubRepo) ListCategories(ctx context.Context) ([]Category, error) { return nil, nil }
func (r *stubRepo) DeleteCategory(ctx context.Context, id string) error   { return nil }
func (r *stubRepo) CategoryExists(ctx context.Context, id string) (bool, error) {
	return r.categories[id], nil
}
func (r *stubRepo) CreateProduct(ctx context.Context, in ProductInput) (*orders.Product, error) {
	r.created = &in
	return &orders.Product{ID: "p1", Name: in.Name, Stock: in.Stock}, nil
}
func (r *stubRepo) GetProduct(ctx context.Context, id string) (*orders.Product, error) {
	return &orders.Product{ID: id}, nil
}
func (r *stubRepo) ListProducts(ctx context.Context, q ListQuery) ([]orders.Product, int, error) {
	return []orders.Product{{ID: "p1"}}, r.listTotal, nil
}
func (r *stubRepo) UpdateProduct(ctx context.Context, id string, p ProductPatch) (*orders.Product, error) {
	r.patched = &p
	return &orders.Product{ID: id}, nil
}
func (r *stubRepo) DeleteProduct(ctx context.Context, id string) error { return nil }

func newTestService() (*Service, *stubRepo) {
	repo := &stubRepo{categories: map[string]bool{catID: true}}
	return &Service{Repo: repo, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}, repo
}

func validInput() ProductInput {
	return ProductInput{
		Name:        "  Linen Kurta ",
		VariantType: "size",
		BasePrice:   decimal.NewFromInt(100),
		Stock:       5,
		Images:      []string{"a.jpg"},
		CategoryID:  catID,
	}
}

func TestCreateProduct_Normalizes(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "Linen Kurta", repo.created.Name)
	assert.NotNil(t, repo.created.Sizes)
	assert.NotNil(t, repo.created.VariantPrices)
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProductInput)
	}{
		{"no name", func(in *ProductInput) { in.Name = " " }},
		{"no variant type", func(in *ProductInput) { in.VariantType = "" }},
		{"no images", func(in *ProductInput) { in.Images = nil }},
		{"no category", func(in *ProductInput) { in.CategoryID = "" }},
		{"unknown category", func(in *ProductInput) { in.CategoryID = "9d1e0f2a-0000-4000-8000-000000000000" }},
		{"negative price", func(in *ProductInput) { in.BasePrice = decimal.NewFromInt(-1) }},
		{"negative stock", func(in *ProductInput) { in.Stock = -3 }},
		{"fractional cent price", func(in *ProductInput) { in.BasePrice = decimal.RequireFromString("9.999") }},
		{"negative variant price", func(in *ProductInput) {
			in.VariantPrices = orders.VariantPrices{"L": decimal.NewFromInt(-5)}
		}},
		{"fractional cent variant price", func(in *ProductInput) {
			in.VariantPrices = orders.VariantPrices{"M": decimal.RequireFromString("10.005")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			in := validInput()
			tt.mutate(&in)
			_, err := svc.CreateProduct(context.Background(), in)
			assert.ErrorIs(t, err, orders.ErrInvalidInput)
			assert.Nil(t, repo.created)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	name := " New name "
	stock := 7
	_, err := svc.UpdateProduct(ctx, "p1", ProductPatch{Name: &name, Stock: &stock})
	require.NoError(t, err)
	require.NotNil(t, repo.patched)
	assert.Equal(t, "New name", *repo.patched.Name)
	assert.Equal(t, 7, *repo.patched.Stock)

	// empty patch reads back without writing
	repo.patched = nil
	got, err := svc.UpdateProduct(ctx, "p1", ProductPatch{})
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Nil(t, repo.patched)

	neg := -1
	_, err = svc.UpdateProduct(ctx, "p1", ProductPatch{Stock: &neg})
	assert.ErrorIs(t, err, orders.ErrInvalidInput)

	badCat := "9d1e0f2a-0000-4000-8000-000000000000"
	_, err = svc.UpdateProduct(ctx, "p1", ProductPatch{CategoryID: &badCat})
	assert.ErrorIs(t, err, orders.ErrInvalidInput)

	blank := ""
	_, err = svc.UpdateProduct(ctx, "p1", ProductPatch{Name: &blank})
	assert.ErrorIs(t, err, orders.ErrInvalidInput)
}

func TestUpdateProduct_Prices(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	bad := []ProductPatch{
		{BasePrice: ptr(decimal.NewFromInt(-1))},
		{BasePrice: ptr(decimal.RequireFromString("1.005"))},
		{VariantPrices: &orders.VariantPrices{"L": decimal.NewFromInt(-5)}},
		{VariantPrices: &orders.VariantPrices{"M": decimal.RequireFromString("10.005")}},
	}
	for _, p := range bad {
		_, err := svc.UpdateProduct(ctx, "p1", p)
		assert.ErrorIs(t, err, orders.ErrInvalidInput)
	}
	assert.Nil(t, repo.patched)

	vp := orders.VariantPrices{"M": decimal.RequireFromString("120.50")}
	_, err := svc.UpdateProduct(ctx, "p1", ProductPatch{VariantPrices: &vp, BasePrice: ptr(decimal.NewFromInt(100))})
	require.NoError(t, err)
	require.NotNil(t, repo.patched)
}

func ptr[T any](v T) *T { return &v }

func TestCreateCategory_Blank(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateCategory(context.Background(), "   ")
	assert.ErrorIs(t, err, orders.ErrInvalidInput)

	c, err := svc.CreateCategory(context.Background(), " Kurtas ")
	require.NoError(t, err)
	assert.Equal(t, "Kurtas", c.Name)
}

func TestListProducts_Meta(t *testing.T) {
	svc, repo := newTestService()
	repo.listTotal = 23

	page, err := svc.ListProducts(context.Background(), ListQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, Meta{Page: 2, Limit: 10, TotalCount: 23, TotalPages: 3}, page.Meta)
	assert.Len(t, page.Data, 1)
}

package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

// Service validates catalog writes before they reach the repository.
type Service struct {
	Repo Repository
	Log  *slog.Logger
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, orders.Errorf(orders.KindInvalidInput, "category name is required")
	}
	c, err := s.Repo.CreateCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	s.Log.InfoContext(ctx, "category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.Repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.Log.InfoContext(ctx, "category deleted", "category_id", id)
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*orders.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.VariantType = strings.TrimSpace(in.VariantType)
	switch {
	case in.Name == "":
		return nil, orders.Errorf(orders.KindInvalidInput, "name is required")
	case in.VariantType == "":
		return nil, orders.Errorf(orders.KindInvalidInput, "variant type is required")
	case len(in.Images) == 0:
		return nil, orders.Errorf(orders.KindInvalidInput, "at least one image is required")
	case in.CategoryID == "":
		return nil, orders.Errorf(orders.KindInvalidInput, "category id is required")
	case in.Stock < 0:
		return nil, orders.Errorf(orders.KindInvalidInput, "stock cannot be negative")
	}
	if err := orders.CheckPrice("base price", in.BasePrice); err != nil {
		return nil, err
	}
	if err := in.VariantPrices.Check(); err != nil {
		return nil, err
	}
	if in.Sizes == nil {
		in.Sizes = []string{}
	}
	if in.VariantPrices == nil {
		in.VariantPrices = orders.VariantPrices{}
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p, err := s.Repo.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	s.Log.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name, "stock", p.Stock)
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*orders.Product, error) {
	return s.Repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, q ListQuery) (*ProductPage, error) {
	items, total, err := s.Repo.ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Meta: Meta{Page: q.Page, Limit: q.Limit, TotalCount: total, TotalPages: totalPages(total, q.Limit)},
		Data: items,
	}, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, p ProductPatch) (*orders.Product, error) {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return nil, orders.Errorf(orders.KindInvalidInput, "name cannot be empty")
		}
		p.Name = &n
	}
	if p.BasePrice != nil {
		if err := orders.CheckPrice("base price", *p.BasePrice); err != nil {
			return nil, err
		}
	}
	if p.VariantPrices != nil {
		if err := p.VariantPrices.Check(); err != nil {
			return nil, err
		}
	}
	if p.Stock != nil && *p.Stock < 0 {
		return nil, orders.Errorf(orders.KindInvalidInput, "stock cannot be negative")
	}
	if p.Images != nil && len(*p.Images) == 0 {
		return nil, orders.Errorf(orders.KindInvalidInput, "at least one image is required")
	}
	if p.Sizes != nil && *p.Sizes == nil {
		p.Sizes = &[]string{}
	}
	if p.CategoryID != nil {
		if err := s.checkCategory(ctx, *p.CategoryID); err != nil {
			return nil, err
		}
	}
	if p.empty() {
		return s.Repo.GetProduct(ctx, id)
	}

	out, err := s.Repo.UpdateProduct(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.Log.InfoContext(ctx, "product updated", "product_id", out.ID)
	return out, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.Log.InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

func (s *Service) checkCategory(ctx context.Context, id string) error {
	ok, err := s.Repo.CategoryExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return orders.Errorf(orders.KindInvalidInput, "invalid category id")
	}
	return nil
}

// Package catalog exposes read-only product lookups: the public shop
// listing and the accessor the cart and checkout paths use to read live
// prices and images.
package catalog

import (
	"context"

	"tortaskeia-api/internal/domain"
	productrepo "tortaskeia-api/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

// Get returns an active product by id, the lookup cart and checkout use.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

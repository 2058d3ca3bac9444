package product

import (
	"context"

	"tortaskeia-api/internal/domain"
)

type Repository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	// GetByID returns the product regardless of active flag; callers gate on
	// IsActive themselves.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

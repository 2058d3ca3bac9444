package user

import (
	"context"

	"tortaskeia-api/internal/domain"
)

type CreateUserInput struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	IsAdmin      bool
}

type Repository interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

package cart

import (
	"context"

	"tortaskeia-api/internal/domain"

	"github.com/shopspring/decimal"
)

type CustomItemInput struct {
	Name  string
	Price decimal.Decimal
	Image *string
	Notes *string
}

type Repository interface {
	// GetOrCreateByUser and GetOrCreateBySession return the single cart for
	// the identity, creating an empty one if absent. Items come back with
	// their products loaded so prices are always live.
	GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	GetOrCreateBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)

	// AddItem merges quantity into an existing line for the same product,
	// overwriting notes only when new notes are provided.
	AddItem(ctx context.Context, cartID, productID int64, quantity int, notes *string) error
	AddCustomItem(ctx context.Context, cartID int64, quantity int, in CustomItemInput) error
	// UpdateItem deletes the line when quantity is present and <= 0.
	UpdateItem(ctx context.Context, cartID, itemID int64, quantity *int, notes *string) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	// Clear deletes all lines; the cart row persists.
	Clear(ctx context.Context, cartID int64) error
}

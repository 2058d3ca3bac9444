package cart

import (
	"context"
	"strings"

	"tortaskeia-api/internal/domain"
	cartrepo "tortaskeia-api/internal/repository/cart"

	"github.com/shopspring/decimal"
)

type cartRepo interface {
	GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	GetOrCreateBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int, notes *string) error
	AddCustomItem(ctx context.Context, cartID int64, quantity int, in cartrepo.CustomItemInput) error
	UpdateItem(ctx context.Context, cartID, itemID int64, quantity *int, notes *string) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	Clear(ctx context.Context, cartID int64) error
}

type productGetter interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

type Service struct {
	repo    cartRepo
	catalog productGetter
}

func New(repo cartrepo.Repository, catalog productGetter) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// GetOrCreate returns the identity's single cart, creating it on first
// access.
func (s *Service) GetOrCreate(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	if identity.Empty() {
		return nil, domain.ErrIdentityRequired
	}
	if identity.User != nil {
		return s.repo.GetOrCreateByUser(ctx, identity.User.ID)
	}
	return s.repo.GetOrCreateBySession(ctx, identity.SessionID)
}

type AddItemInput struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Notes     *string `json:"notes"`
}

// AddItem adds a catalog product to the cart. Quantities for an existing
// line of the same product are summed. Missing or inactive products fail
// with ErrNotFound.
func (s *Service) AddItem(ctx context.Context, identity domain.Identity, in AddItemInput) (*domain.Cart, error) {
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	product, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	cart, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddItem(ctx, cart.ID, product.ID, in.Quantity, in.Notes); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, identity)
}

type AddCustomItemInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	ImageURL *string         `json:"image_url"`
	Notes    *string         `json:"notes"`
}

// AddCustomItem adds an ad hoc line with its price frozen at creation.
func (s *Service) AddCustomItem(ctx context.Context, identity domain.Identity, in AddCustomItemInput) (*domain.Cart, error) {
	if in.Price.IsNegative() || in.Quantity < 1 {
		return nil, domain.ErrInvalidCustomItem
	}
	cart, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Torta personalizada"
	}
	err = s.repo.AddCustomItem(ctx, cart.ID, in.Quantity, cartrepo.CustomItemInput{
		Name:  name,
		Price: in.Price,
		Image: in.ImageURL,
		Notes: in.Notes,
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, identity)
}

type UpdateItemInput struct {
	Quantity *int    `json:"quantity"`
	Notes    *string `json:"notes"`
}

// UpdateItem changes quantity and/or notes; a quantity <= 0 deletes the
// line.
func (s *Service) UpdateItem(ctx context.Context, identity domain.Identity, itemID int64, in UpdateItemInput) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItem(ctx, cart.ID, itemID, in.Quantity, in.Notes); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, identity)
}

func (s *Service) RemoveItem(ctx context.Context, identity domain.Identity, itemID int64) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, identity)
}

// Clear deletes every line; the cart row itself persists.
func (s *Service) Clear(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, identity)
}

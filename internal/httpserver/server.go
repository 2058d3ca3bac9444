// Package httpserver wires the HTTP API: routing, identity resolution,
// request decoding and the mapping from domain errors to status codes.
package httpserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"tortaskeia-api/internal/config"
	"tortaskeia-api/internal/domain"
	"tortaskeia-api/internal/service/auth"
	cartsvc "tortaskeia-api/internal/service/cart"
	ordersvc "tortaskeia-api/internal/service/order"
	"tortaskeia-api/internal/service/payment"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	UserFromToken(ctx context.Context, token string) (*domain.User, error)
}

type CatalogService interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

type CartService interface {
	GetOrCreate(ctx context.Context, identity domain.Identity) (*domain.Cart, error)
	AddItem(ctx context.Context, identity domain.Identity, in cartsvc.AddItemInput) (*domain.Cart, error)
	AddCustomItem(ctx context.Context, identity domain.Identity, in cartsvc.AddCustomItemInput) (*domain.Cart, error)
	UpdateItem(ctx context.Context, identity domain.Identity, itemID int64, in cartsvc.UpdateItemInput) (*domain.Cart, error)
	RemoveItem(ctx context.Context, identity domain.Identity, itemID int64) (*domain.Cart, error)
	Clear(ctx context.Context, identity domain.Identity) (*domain.Cart, error)
}

type OrderService interface {
	Availability(ctx context.Context, from, to time.Time) (map[string]ordersvc.DayAvailability, error)
	Checkout(ctx context.Context, identity domain.Identity, in ordersvc.CheckoutInput) (*domain.Order, error)
	ListByUser(ctx context.Context, user *domain.User) ([]domain.Order, error)
	GetByNumber(ctx context.Context, number string, user *domain.User) (*domain.Order, error)
	AdminList(ctx context.Context) ([]domain.Order, error)
	AdminUpdate(ctx context.Context, number string, in ordersvc.AdminUpdate) (*domain.Order, error)
}

type PaymentService interface {
	CreatePreference(ctx context.Context, orderNumber string) (*payment.PreferenceResult, error)
	Status(ctx context.Context, orderNumber string) (*payment.StatusResult, error)
	HandleNotification(ctx context.Context, n payment.Notification) error
}

// Deps carries everything the router needs. DB may be nil, in which case
// readiness reports unavailable.
type Deps struct {
	Auth     AuthService
	Catalog  CatalogService
	Cart     CartService
	Orders   OrderService
	Payments PaymentService
	DB       *pgxpool.Pool
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

func New(cfg config.Config, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	router := newRouter(cfg, deps, logger)
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) ListenAndServe() error {
	s.logger.Printf("http: listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

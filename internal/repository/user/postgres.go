package user

import (
	"context"
	"errors"
	"io"
	"log"

	"tortaskeia-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const userColumns = `id, email, password_hash, full_name, phone, is_active, is_admin, created_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	const q = `
INSERT INTO users (email, password_hash, full_name, phone, is_admin)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns
	var u domain.User
	err := r.pool.QueryRow(ctx, q, in.Email, in.PasswordHash, in.FullName, in.Phone, in.IsAdmin).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.IsActive, &u.IsAdmin, &u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("user repo: create email=%s error=%v", in.Email, err)
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.fetch(ctx, q, email)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.fetch(ctx, q, id)
}

func (r *postgresRepo) fetch(ctx context.Context, q string, arg interface{}) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.IsActive, &u.IsAdmin, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("user repo: fetch error=%v", err)
		return nil, err
	}
	return &u, nil
}

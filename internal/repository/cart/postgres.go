package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"tortaskeia-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
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

func (r *postgresRepo) GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	const insert = `
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, insert, userID); err != nil {
		r.logger.Printf("cart repo: create user_id=%d error=%v", userID, err)
		return nil, err
	}
	return r.fetchCart(ctx, `SELECT id, user_id, session_id, created_at FROM carts WHERE user_id = $1`, userID)
}

func (r *postgresRepo) GetOrCreateBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	const insert = `
INSERT INTO carts (session_id) VALUES ($1)
ON CONFLICT (session_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, insert, sessionID); err != nil {
		r.logger.Printf("cart repo: create session_id=%s error=%v", sessionID, err)
		return nil, err
	}
	return r.fetchCart(ctx, `SELECT id, user_id, session_id, created_at FROM carts WHERE session_id = $1`, sessionID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	return r.fetchCart(ctx, `SELECT id, user_id, session_id, created_at FROM carts WHERE id = $1`, id)
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID, productID int64, quantity int, notes *string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var itemID int64
	err = tx.QueryRow(ctx, `
SELECT id FROM cart_items
WHERE cart_id = $1 AND product_id = $2
`, cartID, productID).Scan(&itemID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err == nil {
		if _, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = quantity + $1, notes = COALESCE($2, notes)
WHERE id = $3
`, quantity, notes, itemID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity, notes)
VALUES ($1, $2, $3, $4)
`, cartID, productID, quantity, notes); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) AddCustomItem(ctx context.Context, cartID int64, quantity int, in CustomItemInput) error {
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, notes, custom_name, custom_price, custom_image)
VALUES ($1, NULL, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, q, cartID, quantity, in.Notes, in.Name, in.Price.StringFixed(2), in.Image)
	if err != nil {
		r.logger.Printf("cart repo: add custom item cart_id=%d error=%v", cartID, err)
	}
	return err
}

func (r *postgresRepo) UpdateItem(ctx context.Context, cartID, itemID int64, quantity *int, notes *string) error {
	if quantity != nil && *quantity <= 0 {
		return r.RemoveItem(ctx, cartID, itemID)
	}
	const q = `
UPDATE cart_items
SET quantity = COALESCE($1, quantity), notes = COALESCE($2, notes)
WHERE id = $3 AND cart_id = $4
`
	cmd, err := r.pool.Exec(ctx, q, quantity, notes, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, cartID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, arg interface{}) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, arg).Scan(&cart.ID, &cart.UserID, &cart.SessionID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `
SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.notes,
       ci.custom_name, ci.custom_price::text, ci.custom_image, ci.created_at,
       p.slug, p.name, p.price::text, p.is_active,
       (SELECT i.url FROM product_images i
        WHERE i.product_id = p.id
        ORDER BY i.is_main DESC, i.sort_order ASC, i.id ASC
        LIMIT 1) AS main_image
FROM cart_items ci
LEFT JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at ASC, ci.id ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		var customPrice *string
		var slug, name, price *string
		var isActive *bool
		var mainImage *string
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.Notes,
			&item.CustomName, &customPrice, &item.CustomImage, &item.CreatedAt,
			&slug, &name, &price, &isActive, &mainImage,
		); err != nil {
			return nil, err
		}
		if customPrice != nil {
			d, err := decimal.NewFromString(*customPrice)
			if err != nil {
				return nil, err
			}
			item.CustomPrice = &d
		}
		if item.ProductID != nil && name != nil && price != nil {
			d, err := decimal.NewFromString(*price)
			if err != nil {
				return nil, err
			}
			item.Product = &domain.Product{
				ID:        *item.ProductID,
				Slug:      derefString(slug),
				Name:      *name,
				Price:     d,
				IsActive:  isActive != nil && *isActive,
				MainImage: mainImage,
			}
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

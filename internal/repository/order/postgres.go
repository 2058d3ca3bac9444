package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"tortaskeia-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const reservedForDayQuery = `
SELECT COALESCE(SUM(oi.quantity), 0)
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
WHERE o.delivery_date IS NOT NULL
  AND o.status <> 'cancelled'
  AND o.delivery_date::date = $1::date
`

func (r *postgresRepo) CreateFromCart(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	requested := 0
	for _, item := range in.Items {
		requested += item.Quantity
	}

	if in.DeliveryDate != nil {
		// Serialize competing checkouts for the same delivery day. The lock
		// is scoped to the transaction and keyed on the day, so unrelated
		// days never contend.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, dayLockKey(*in.DeliveryDate)); err != nil {
			return nil, err
		}
		var reserved int
		if err := tx.QueryRow(ctx, reservedForDayQuery, *in.DeliveryDate).Scan(&reserved); err != nil {
			return nil, err
		}
		if reserved+requested > in.Capacity {
			return nil, &domain.CapacityError{
				Day:       *in.DeliveryDate,
				Requested: requested,
				Remaining: in.Capacity - reserved,
			}
		}
	}

	const insertOrder = `
INSERT INTO orders (
    order_number, user_id, guest_email, guest_phone,
    customer_name, customer_email, customer_phone,
    delivery_type, delivery_address, delivery_city, delivery_date, delivery_time_slot,
    notes, status, subtotal, delivery_fee, discount, total
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'created', $14, $15, $16, $17)
RETURNING id, created_at
`
	order := domain.Order{
		OrderNumber:      in.OrderNumber,
		UserID:           in.UserID,
		GuestEmail:       in.GuestEmail,
		GuestPhone:       in.GuestPhone,
		CustomerName:     in.CustomerName,
		CustomerEmail:    in.CustomerEmail,
		CustomerPhone:    in.CustomerPhone,
		DeliveryType:     in.DeliveryType,
		DeliveryAddress:  in.DeliveryAddress,
		DeliveryCity:     in.DeliveryCity,
		DeliveryDate:     in.DeliveryDate,
		DeliveryTimeSlot: in.DeliveryTimeSlot,
		Notes:            in.Notes,
		Status:           domain.StatusCreated,
		Subtotal:         in.Subtotal,
		DeliveryFee:      in.DeliveryFee,
		Discount:         in.Discount,
		Total:            in.Total,
	}
	err = tx.QueryRow(ctx, insertOrder,
		in.OrderNumber, in.UserID, in.GuestEmail, in.GuestPhone,
		in.CustomerName, in.CustomerEmail, in.CustomerPhone,
		in.DeliveryType, in.DeliveryAddress, in.DeliveryCity, in.DeliveryDate, in.DeliveryTimeSlot,
		in.Notes,
		in.Subtotal.StringFixed(2), in.DeliveryFee.StringFixed(2), in.Discount.StringFixed(2), in.Total.StringFixed(2),
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: insert order_number=%s error=%v", in.OrderNumber, err)
		return nil, err
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, product_name, product_price, product_image, quantity, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	for _, item := range in.Items {
		oi := domain.OrderItem{
			OrderID:      order.ID,
			ProductID:    item.ProductID,
			ProductName:  item.Name,
			ProductPrice: item.Price,
			ProductImage: item.Image,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
			Notes:        item.Notes,
		}
		if err := tx.QueryRow(ctx, insertItem,
			order.ID, item.ProductID, item.Name, item.Price.StringFixed(2),
			item.Image, item.Quantity, item.Subtotal.StringFixed(2), item.Notes,
		).Scan(&oi.ID); err != nil {
			r.logger.Printf("order repo: insert item order_number=%s error=%v", in.OrderNumber, err)
			return nil, err
		}
		order.Items = append(order.Items, oi)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, in.CartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created order_number=%s items=%d total=%s", order.OrderNumber, len(order.Items), order.Total.StringFixed(2))
	return &order, nil
}

func (r *postgresRepo) ReservedByDay(ctx context.Context, from, to time.Time) (map[string]int, error) {
	const q = `
SELECT o.delivery_date::date::text, COALESCE(SUM(oi.quantity), 0)
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
WHERE o.delivery_date IS NOT NULL
  AND o.status <> 'cancelled'
  AND o.delivery_date::date BETWEEN $1::date AND $2::date
GROUP BY o.delivery_date::date
`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		r.logger.Printf("order repo: reserved by day error=%v", err)
		return nil, err
	}
	defer rows.Close()

	reserved := make(map[string]int)
	for rows.Next() {
		var day string
		var qty int
		if err := rows.Scan(&day, &qty); err != nil {
			return nil, err
		}
		reserved[day] = qty
	}
	return reserved, rows.Err()
}

const orderColumns = `
id, order_number, user_id, guest_email, guest_phone,
customer_name, customer_email, customer_phone,
delivery_type, delivery_address, delivery_city, delivery_date, delivery_time_slot,
notes, internal_notes, status,
subtotal::text, delivery_fee::text, discount::text, total::text,
payment_method, payment_id, payment_status, mp_preference_id, created_at
`

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		r.logger.Printf("order repo: get order_number=%s error=%v", number, err)
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%d error=%v", userID, err)
		return nil, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) MarkPaying(ctx context.Context, id int64, preferenceID, method string) (bool, error) {
	const q = `
UPDATE orders
SET status = 'paying', mp_preference_id = $1, payment_method = $2
WHERE id = $3 AND status IN ('created', 'failed')
`
	cmd, err := r.pool.Exec(ctx, q, preferenceID, method, id)
	if err != nil {
		r.logger.Printf("order repo: mark paying id=%d error=%v", id, err)
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) ApplyPaymentResult(ctx context.Context, orderNumber string, target domain.OrderStatus, paymentID, paymentStatus string) (bool, error) {
	sources := domain.ReconciliationSources(target)
	if len(sources) == 0 {
		return false, domain.ErrInvalidTransition
	}
	allowed := make([]string, len(sources))
	for i, s := range sources {
		allowed[i] = string(s)
	}
	// The guard lives inside the UPDATE so duplicate and out-of-order
	// notifications resolve atomically: a stale target matches zero rows.
	const q = `
UPDATE orders
SET status = $1, payment_id = $2, payment_status = $3
WHERE order_number = $4 AND status = ANY($5)
`
	cmd, err := r.pool.Exec(ctx, q, string(target), paymentID, paymentStatus, orderNumber, allowed)
	if err != nil {
		r.logger.Printf("order repo: apply payment order_number=%s target=%s error=%v", orderNumber, target, err)
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, number string, from, to domain.OrderStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE order_number = $2 AND status = $3`,
		string(to), number, string(from))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	r.logger.Printf("order repo: status order_number=%s %s -> %s", number, from, to)
	return nil
}

func (r *postgresRepo) UpdateInternalNotes(ctx context.Context, number string, notes string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE orders SET internal_notes = $1 WHERE order_number = $2`, notes, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]*domain.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	const q = `
SELECT id, order_id, product_id, product_name, product_price::text, product_image, quantity, subtotal::text, notes
FROM order_items
WHERE order_id = ANY($1)
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		var price, subtotal string
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&price, &item.ProductImage, &item.Quantity, &subtotal, &item.Notes); err != nil {
			return err
		}
		if item.ProductPrice, err = decimal.NewFromString(price); err != nil {
			return err
		}
		if item.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return err
		}
		if o, ok := index[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		var subtotal, fee, discount, total string
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserID, &o.GuestEmail, &o.GuestPhone,
			&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.DeliveryType, &o.DeliveryAddress, &o.DeliveryCity, &o.DeliveryDate, &o.DeliveryTimeSlot,
			&o.Notes, &o.InternalNotes, &status,
			&subtotal, &fee, &discount, &total,
			&o.PaymentMethod, &o.PaymentID, &o.PaymentStatus, &o.PreferenceID, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		var err error
		if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, err
		}
		if o.DeliveryFee, err = decimal.NewFromString(fee); err != nil {
			return nil, err
		}
		if o.Discount, err = decimal.NewFromString(discount); err != nil {
			return nil, err
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// dayLockKey derives the advisory lock key from the delivery day in UTC.
func dayLockKey(t time.Time) int64 {
	return t.UTC().Truncate(24*time.Hour).Unix() / 86400
}

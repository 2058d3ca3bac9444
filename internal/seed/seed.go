// Package seed loads a starter catalog and an admin account for local
// development. Every insert is idempotent so reseeding is safe.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type product struct {
	slug        string
	name        string
	description string
	price       string
	image       string
}

var products = []product{
	{"torta-de-chocolate", "Torta de chocolate", "Bizcochuelo de cacao con ganache de chocolate semiamargo.", "1200.00", "/images/torta-chocolate.jpg"},
	{"torta-de-vainilla", "Torta de vainilla", "Clásica de vainilla con crema chantilly y frutillas.", "1100.00", "/images/torta-vainilla.jpg"},
	{"cheesecake-de-frutos-rojos", "Cheesecake de frutos rojos", "Base de galleta, queso crema y coulis de frutos rojos.", "1450.00", "/images/cheesecake.jpg"},
	{"lemon-pie", "Lemon pie", "Masa sablée, curd de limón y merengue italiano flameado.", "1300.00", "/images/lemon-pie.jpg"},
	{"carrot-cake", "Carrot cake", "Torta de zanahoria especiada con frosting de queso crema.", "1250.00", "/images/carrot-cake.jpg"},
	{"alfajores-de-maicena", "Alfajores de maicena (docena)", "Docena de alfajores de maicena rellenos de dulce de leche.", "650.00", "/images/alfajores.jpg"},
}

// Run inserts the starter products and an admin user. Existing rows are
// left untouched.
func Run(ctx context.Context, pool *pgxpool.Pool, adminEmail, adminPassword string, logger *log.Logger) error {
	const productQ = `
		INSERT INTO products (slug, name, description, price, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id`

	const imageQ = `
		INSERT INTO product_images (product_id, url, is_main, sort_order)
		VALUES ($1, $2, true, 0)`

	inserted := 0
	for _, p := range products {
		var id int64
		err := pool.QueryRow(ctx, productQ, p.slug, p.name, p.description, p.price).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			// The product already exists.
			continue
		}
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.slug, err)
		}
		if _, err := pool.Exec(ctx, imageQ, id, p.image); err != nil {
			return fmt.Errorf("seed image for %s: %w", p.slug, err)
		}
		inserted++
	}
	logger.Printf("seed: %d of %d products inserted", inserted, len(products))

	if adminEmail != "" && adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		const adminQ = `
			INSERT INTO users (email, password_hash, full_name, phone, is_active, is_admin)
			VALUES ($1, $2, 'Administración', '', true, true)
			ON CONFLICT (email) DO NOTHING`
		tag, err := pool.Exec(ctx, adminQ, adminEmail, string(hash))
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if tag.RowsAffected() > 0 {
			logger.Printf("seed: admin user %s created", adminEmail)
		}
	}
	return nil
}

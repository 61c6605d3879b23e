package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is a user's saved product, the subject of copy and image
// generations.
type Product struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	Price       string // free-form display price, e.g. "$29.99"
	ImageKey    string // storage key of the product image; empty when none
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductStore persists products per user.
type ProductStore struct {
	pool *pgxpool.Pool
}

// NewProductStore creates a new ProductStore.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// Insert creates a product row.
func (s *ProductStore) Insert(ctx context.Context, p *Product) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO products (id, user_id, name, description, price, image_key)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		p.ID, p.UserID, p.Name, p.Description, p.Price, p.ImageKey)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// ListByUser returns the user's products, newest first.
func (s *ProductStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, name, description, COALESCE(price, ''), COALESCE(image_key, ''), created_at, updated_at
FROM products
WHERE user_id = $1
ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Price, &p.ImageKey, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a product owned by the user. Idempotent.
func (s *ProductStore) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND user_id = $2`, productID, userID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoforge/promoforge/internal/domain"
)

// Generation is one persisted generation artifact: the prompt that
// produced it and either inline text output or a storage key for an
// image asset.
type Generation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Category  domain.Category
	Prompt    string
	Output    string // generated text; empty for image generations
	AssetKey  string // storage key of the stored image; empty for text
	CreatedAt time.Time
}

// GenerationStore persists generation history per user.
type GenerationStore struct {
	pool *pgxpool.Pool
}

// NewGenerationStore creates a new GenerationStore.
func NewGenerationStore(pool *pgxpool.Pool) *GenerationStore {
	return &GenerationStore{pool: pool}
}

// Insert records a completed generation.
func (s *GenerationStore) Insert(ctx context.Context, g *Generation) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO generations (id, user_id, category, prompt, output, asset_key)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		g.ID, g.UserID, g.Category, g.Prompt, g.Output, g.AssetKey)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent generations in a category,
// newest first.
func (s *GenerationStore) ListByUser(ctx context.Context, userID uuid.UUID, category domain.Category, limit int) ([]Generation, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, category, prompt, output, COALESCE(asset_key, ''), created_at
FROM generations
WHERE user_id = $1 AND category = $2
ORDER BY created_at DESC
LIMIT $3`, userID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.UserID, &g.Category, &g.Prompt, &g.Output, &g.AssetKey, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

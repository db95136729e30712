package store

import (
	"context"
	"fmt"

	"datekeeper/internal/models"
)

func (s *GormStore) SaveBroadcast(ctx context.Context, b *models.Broadcast) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("save broadcast: %w", err)
	}
	return nil
}

// ListBroadcasts returns the most recent broadcasts first.
func (s *GormStore) ListBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.Broadcast
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	return out, nil
}

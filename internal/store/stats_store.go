package store

import (
	"context"
	"fmt"
	"time"

	"datekeeper/internal/models"
)

// CountUsers counts distinct users owning at least one event.
func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Distinct("user_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountActiveUsers counts users with an event dated on or after since.
func (s *GormStore) CountActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_date >= ?", models.NewDate(since)).
		Distinct("user_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}

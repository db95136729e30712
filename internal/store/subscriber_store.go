package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datekeeper/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSubscriber records the room a user last wrote from.
func (s *GormStore) UpsertSubscriber(ctx context.Context, userID, roomID, username string) error {
	now := time.Now()
	sub := models.Subscriber{
		UserID:    userID,
		RoomID:    roomID,
		Username:  username,
		FirstSeen: now,
		LastSeen:  now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"room_id", "username", "last_seen"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscriber %s: %w", userID, err)
	}
	return nil
}

func (s *GormStore) GetSubscriber(ctx context.Context, userID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber %s: %w", userID, err)
	}
	return &sub, nil
}

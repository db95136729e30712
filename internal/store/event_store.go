package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datekeeper/internal/models"

	"gorm.io/gorm"
)

func (s *GormStore) SaveEvent(ctx context.Context, event *models.Event) error {
	event.EventDate = models.NewDate(time.Time(event.EventDate))
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// GetUserEvents returns the user's events, earliest first.
func (s *GormStore) GetUserEvents(ctx context.Context, userID string) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("event_date ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("get events for %s: %w", userID, err)
	}
	return events, nil
}

// GetAllUserIDs returns every user that owns at least one event.
func (s *GormStore) GetAllUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list event owners: %w", err)
	}
	return ids, nil
}

// GetNearestEvent returns the user's earliest event on or after today.
func (s *GormStore) GetNearestEvent(ctx context.Context, userID string, today time.Time) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND event_date >= ?", userID, models.NewDate(today)).
		Order("event_date ASC").
		Order("id ASC").
		Limit(1).
		Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get nearest event for %s: %w", userID, err)
	}
	return &event, nil
}

func (s *GormStore) DeleteEvent(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Event{}, id).Error; err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

// DeleteEventByName deletes every event of the user with the given name.
func (s *GormStore) DeleteEventByName(ctx context.Context, userID, name string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&models.Event{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete events named %q: %w", name, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteEventByNameAndDate deletes the user's events matching both name and date.
func (s *GormStore) DeleteEventByNameAndDate(ctx context.Context, userID, name string, date time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND event_date = ?", userID, name, models.NewDate(date)).
		Delete(&models.Event{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete events named %q: %w", name, res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateEvent rewrites name and date of an event owned by userID.
func (s *GormStore) UpdateEvent(ctx context.Context, userID string, id uint, name string, date time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"name":       name,
			"event_date": models.NewDate(date),
		})
	if res.Error != nil {
		return fmt.Errorf("update event %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CountEventsForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count events for %s: %w", userID, err)
	}
	return count, nil
}

// DeletePastEvents removes every event dated before today. These are day-of
// events whose reminder could not be delivered; no pass picks them up again.
func (s *GormStore) DeletePastEvents(ctx context.Context, today time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("event_date < ?", models.NewDate(today)).
		Delete(&models.Event{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete events before %s: %w", today.Format("2006-01-02"), res.Error)
	}
	return res.RowsAffected, nil
}

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

// GetGiftCounterForToday returns the user's calls counted against today.
// A missing row or a row from an earlier day counts as zero.
func (s *GormStore) GetGiftCounterForToday(ctx context.Context, userID string, today time.Time) (int, error) {
	var usage models.GiftUsage
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get gift counter for %s: %w", userID, err)
	}
	return usage.CallsOn(models.NewDate(today)), nil
}

// ConsumeGiftCall takes one unit of the user's daily allowance. The row is
// created if missing and then locked, so concurrent callers are serialized
// and the counter never exceeds limit.
func (s *GormStore) ConsumeGiftCall(ctx context.Context, userID string, today time.Time, limit int) (bool, error) {
	day := models.NewDate(today)
	allowed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.GiftUsage{UserID: userID, LastCallDate: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("ensure gift usage row: %w", err)
		}

		var usage models.GiftUsage
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&usage).Error; err != nil {
			return fmt.Errorf("lock gift usage row: %w", err)
		}

		calls := usage.CallsOn(day)
		if calls >= limit {
			return nil
		}

		allowed = true
		return tx.Model(&models.GiftUsage{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"calls_today":    calls + 1,
				"last_call_date": day,
			}).Error
	})
	if err != nil {
		return false, fmt.Errorf("consume gift call for %s: %w", userID, err)
	}
	return allowed, nil
}

// ResetAllGiftCounters zeroes every counter and returns how many rows changed.
func (s *GormStore) ResetAllGiftCounters(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.GiftUsage{}).
		Where("calls_today <> ?", 0).
		Update("calls_today", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("reset gift counters: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GiftStats sums the calls made today and counts the users who made them.
func (s *GormStore) GiftStats(ctx context.Context, today time.Time) (GiftStats, error) {
	var stats GiftStats
	err := s.db.WithContext(ctx).
		Model(&models.GiftUsage{}).
		Select("COALESCE(SUM(calls_today), 0) AS calls, COUNT(*) AS users").
		Where("last_call_date = ? AND calls_today > ?", models.NewDate(today), 0).
		Scan(&stats).Error
	if err != nil {
		return GiftStats{}, fmt.Errorf("gift stats: %w", err)
	}
	return stats, nil
}

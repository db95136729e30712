package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datekeeper/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// EventStore persists user events.
type EventStore interface {
	SaveEvent(ctx context.Context, event *models.Event) error
	GetUserEvents(ctx context.Context, userID string) ([]models.Event, error)
	GetAllUserIDs(ctx context.Context) ([]string, error)
	GetNearestEvent(ctx context.Context, userID string, today time.Time) (*models.Event, error)
	DeleteEvent(ctx context.Context, id uint) error
	DeleteEventByName(ctx context.Context, userID, name string) (int64, error)
	DeleteEventByNameAndDate(ctx context.Context, userID, name string, date time.Time) (int64, error)
	UpdateEvent(ctx context.Context, userID string, id uint, name string, date time.Time) error
	CountEventsForUser(ctx context.Context, userID string) (int64, error)
	DeletePastEvents(ctx context.Context, today time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// QuotaStore persists per-user daily gift-advice counters.
type QuotaStore interface {
	GetGiftCounterForToday(ctx context.Context, userID string, today time.Time) (int, error)
	ConsumeGiftCall(ctx context.Context, userID string, today time.Time, limit int) (bool, error)
	ResetAllGiftCounters(ctx context.Context) (int64, error)
	GiftStats(ctx context.Context, today time.Time) (GiftStats, error)
}

// SubscriberStore maps chat users to the room they talk from.
type SubscriberStore interface {
	UpsertSubscriber(ctx context.Context, userID, roomID, username string) error
	GetSubscriber(ctx context.Context, userID string) (*models.Subscriber, error)
}

// BroadcastStore keeps the audit log of admin broadcasts.
type BroadcastStore interface {
	SaveBroadcast(ctx context.Context, b *models.Broadcast) error
	ListBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error)
}

// StatsStore answers the aggregate queries behind the admin statistics.
type StatsStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int64, error)
}

// GiftStats summarizes gift-advice usage for one day.
type GiftStats struct {
	Calls int64
	Users int64
}

// GormStore implements every store interface on top of a GORM connection.
type GormStore struct {
	db *gorm.DB
}

// New wraps an open, migrated database.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying connection, mainly for tests.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Ping reports whether the database answers.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ EventStore      = (*GormStore)(nil)
	_ QuotaStore      = (*GormStore)(nil)
	_ SubscriberStore = (*GormStore)(nil)
	_ BroadcastStore  = (*GormStore)(nil)
	_ StatsStore      = (*GormStore)(nil)
)

package services

import (
	"context"
	"time"

	"datekeeper/internal/models"
	"datekeeper/internal/store"
)

const (
	DefaultGiftDailyLimit   = 5
	DefaultMaxEventsPerUser = 10
)

// QuotaService enforces the daily gift-advice cap and the per-user event cap.
type QuotaService struct {
	quotas    store.QuotaStore
	events    store.EventStore
	giftLimit int
	maxEvents int
	loc       *time.Location
	clock     Clock
}

func NewQuotaService(quotas store.QuotaStore, events store.EventStore, giftLimit, maxEvents int, loc *time.Location, clock Clock) *QuotaService {
	if giftLimit <= 0 {
		giftLimit = DefaultGiftDailyLimit
	}
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEventsPerUser
	}
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = SystemClock
	}
	return &QuotaService{
		quotas:    quotas,
		events:    events,
		giftLimit: giftLimit,
		maxEvents: maxEvents,
		loc:       loc,
		clock:     clock,
	}
}

// Today is the current calendar day in the service timezone, as UTC midnight.
func (s *QuotaService) Today() time.Time {
	return models.Day(s.clock.Now().In(s.loc))
}

func (s *QuotaService) GiftDailyLimit() int { return s.giftLimit }

func (s *QuotaService) MaxEventsPerUser() int { return s.maxEvents }

// CheckAndConsumeGift takes one gift-advice call from today's allowance.
// It returns false without mutating anything when the allowance is spent.
func (s *QuotaService) CheckAndConsumeGift(ctx context.Context, userID string) (bool, error) {
	return s.quotas.ConsumeGiftCall(ctx, userID, s.Today(), s.giftLimit)
}

// GiftCallsRemaining reports today's unused allowance without consuming it.
func (s *QuotaService) GiftCallsRemaining(ctx context.Context, userID string) (int, error) {
	used, err := s.quotas.GetGiftCounterForToday(ctx, userID, s.Today())
	if err != nil {
		return 0, err
	}
	if used >= s.giftLimit {
		return 0, nil
	}
	return s.giftLimit - used, nil
}

// HasEventCapacity reports whether the user may create another event.
func (s *QuotaService) HasEventCapacity(ctx context.Context, userID string) (bool, error) {
	n, err := s.events.CountEventsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return n < int64(s.maxEvents), nil
}

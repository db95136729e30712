package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"datekeeper/internal/models"
	"datekeeper/internal/store"
)

// ParseEventInput parses "DDMMYYYY Name". The date may be today but not earlier.
func ParseEventInput(text string, today time.Time) (time.Time, string, error) {
	dateStr, name := splitFirstField(text)
	if dateStr == "" {
		return time.Time{}, "", ErrInvalidFormat
	}

	date, dateErr := parseDate(dateStr)
	if name == "" {
		if dateErr != nil {
			return time.Time{}, "", ErrInvalidFormat
		}
		return time.Time{}, "", ErrMissingName
	}
	if dateErr != nil {
		return time.Time{}, "", ErrInvalidFormat
	}
	if date.Before(models.Day(today)) {
		return time.Time{}, "", ErrDateInPast
	}
	return date, name, nil
}

func parseDate(s string) (time.Time, error) {
	if len(s) != len(models.DateLayout) {
		return time.Time{}, ErrInvalidFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, ErrInvalidFormat
		}
	}
	date, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidFormat
	}
	return date, nil
}

// splitFirstField splits text at the first run of whitespace.
func splitFirstField(text string) (string, string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimSpace(text[idx:])
}

var giftOccasionKeywords = []string{
	"birthday", "bday", "anniversary", "jubilee", "holiday", "wedding",
	"gift", "present", "valentine", "mother's day", "father's day",
	"women's day", "christmas", "new year",
}

// MentionsGiftOccasion reports whether text names an occasion people buy gifts for.
func MentionsGiftOccasion(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range giftOccasionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// EventService implements the user-facing event operations.
type EventService struct {
	events store.EventStore
	quota  *QuotaService
}

func NewEventService(events store.EventStore, quota *QuotaService) *EventService {
	return &EventService{events: events, quota: quota}
}

// Create checks the user's capacity, then parses and stores the event.
func (s *EventService) Create(ctx context.Context, userID, username, text string) (*models.Event, error) {
	ok, err := s.quota.HasEventCapacity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check event capacity: %w", err)
	}
	if !ok {
		return nil, ErrEventLimitReached
	}

	date, name, err := ParseEventInput(text, s.quota.Today())
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		UserID:    userID,
		Username:  username,
		Name:      name,
		EventDate: models.NewDate(date),
	}
	if err := s.events.SaveEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Edit replaces name and date of an existing event. Editing never needs spare capacity.
func (s *EventService) Edit(ctx context.Context, userID string, id uint, text string) (*models.Event, error) {
	date, name, err := ParseEventInput(text, s.quota.Today())
	if err != nil {
		return nil, err
	}
	if err := s.events.UpdateEvent(ctx, userID, id, name, date); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &models.Event{
		ID:        id,
		UserID:    userID,
		Name:      name,
		EventDate: models.NewDate(date),
	}, nil
}

// List returns the user's events in date order.
func (s *EventService) List(ctx context.Context, userID string) ([]models.Event, error) {
	return s.events.GetUserEvents(ctx, userID)
}

// LastEvent is the event /edit targets: the last one in date order.
func (s *EventService) LastEvent(ctx context.Context, userID string) (*models.Event, error) {
	events, err := s.events.GetUserEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	last := events[len(events)-1]
	return &last, nil
}

// Delete removes events matching "DDMMYYYY Name", or every event called
// Name when text carries no leading date.
func (s *EventService) Delete(ctx context.Context, userID, text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrInvalidFormat
	}

	var (
		n   int64
		err error
	)
	first, rest := splitFirstField(text)
	if date, dateErr := parseDate(first); dateErr == nil && rest != "" {
		n, err = s.events.DeleteEventByNameAndDate(ctx, userID, rest, date)
	} else {
		n, err = s.events.DeleteEventByName(ctx, userID, text)
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrEventNotFound
	}
	return n, nil
}

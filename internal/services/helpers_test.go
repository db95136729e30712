package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"datekeeper/internal/models"
	"datekeeper/internal/services"
	"datekeeper/internal/store"
)

var errDeliveryFailed = errors.New("delivery failed")

type sentMessage struct {
	UserID string
	Text   string
	Format services.MessageFormat
}

// fakeNotifier records messages and fails for the users in failFor.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
}

func newFakeNotifier(failing ...string) *fakeNotifier {
	n := &fakeNotifier{failFor: make(map[string]bool)}
	for _, u := range failing {
		n.failFor[u] = true
	}
	return n
}

func (n *fakeNotifier) SendMessage(_ context.Context, userID, text string, format services.MessageFormat) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[userID] {
		return errDeliveryFailed
	}
	n.sent = append(n.sent, sentMessage{UserID: userID, Text: text, Format: format})
	return nil
}

func (n *fakeNotifier) Sent() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *fakeNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

func mustAddEvent(t *testing.T, s *store.GormStore, userID, name string, date time.Time) *models.Event {
	t.Helper()
	ev := &models.Event{UserID: userID, Username: "tester", Name: name, EventDate: models.NewDate(date)}
	if err := s.SaveEvent(context.Background(), ev); err != nil {
		t.Fatalf("SaveEvent(%s): %v", name, err)
	}
	return ev
}

func mustTrigger(t *testing.T, hour int) *services.DailyTrigger {
	t.Helper()
	trig, err := services.NewDailyTrigger(hour, time.UTC)
	if err != nil {
		t.Fatalf("NewDailyTrigger: %v", err)
	}
	return trig
}

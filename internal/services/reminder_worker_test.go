package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"datekeeper/internal/models"
	"datekeeper/internal/services"
	"datekeeper/internal/store"
	"datekeeper/internal/testutil"
)

var passTime = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
var passDay = models.Day(passTime)

type reminderFixture struct {
	store    *store.GormStore
	cache    *services.MemoryNotificationCache
	notifier *fakeNotifier
	worker   *services.ReminderWorker
	reports  []services.PassSummary
}

func (f *reminderFixture) ReportPass(_ context.Context, s services.PassSummary) error {
	f.reports = append(f.reports, s)
	return nil
}

func newReminderFixture(t *testing.T, failing ...string) *reminderFixture {
	t.Helper()
	f := &reminderFixture{
		store:    testutil.NewTestStore(t),
		cache:    services.NewMemoryNotificationCache(),
		notifier: newFakeNotifier(failing...),
	}
	f.worker = services.NewReminderWorker(services.ReminderWorkerConfig{
		Events:   f.store,
		Cache:    f.cache,
		Notifier: f.notifier,
		Reporter: f,
		Trigger:  mustTrigger(t, 20),
		Clock:    testutil.NewFakeClock(passTime),
	})
	return f
}

func (f *reminderFixture) mark(t *testing.T, user string, day time.Time) {
	t.Helper()
	if err := f.cache.MarkNotified(context.Background(), user, day); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
}

func TestRunPass_PastEventsOnlyAreSkipped(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()
	mustAddEvent(t, f.store, "@a:example.org", "gone", passDay.AddDate(0, 0, -2))
	mustAddEvent(t, f.store, "@b:example.org", "soon", passDay.AddDate(0, 0, 2))

	summary := f.worker.RunPass(ctx, passTime)

	sent := f.notifier.Sent()
	if len(sent) != 1 || sent[0].UserID != "@b:example.org" {
		t.Fatalf("sent = %+v, want only @b", sent)
	}
	if summary.Users != 2 || summary.Skipped != 1 || summary.Purged != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if n, _ := f.store.CountEventsForUser(ctx, "@a:example.org"); n != 0 {
		t.Errorf("past events left for @a: %d", n)
	}
	if n, _ := f.store.CountEventsForUser(ctx, "@b:example.org"); n != 1 {
		t.Errorf("future events for @b = %d, want 1", n)
	}
}

func TestRunPass_DayOfSendsAndDeletes(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()
	user := "@a:example.org"
	mustAddEvent(t, f.store, user, "Mom", passDay)

	summary := f.worker.RunPass(ctx, passTime)

	sent := f.notifier.Sent()
	if len(sent) != 1 || sent[0].Text != "🎉 Today: *Mom*!" || sent[0].Format != services.FormatMarkdown {
		t.Fatalf("sent = %+v", sent)
	}
	if summary.Sent != 1 || summary.Deleted != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if _, err := f.store.GetNearestEvent(ctx, user, passDay); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("event still present after day-of reminder: %v", err)
	}
	last, ok, _ := f.cache.LastNotified(ctx, user)
	if !ok || !last.Equal(passDay) {
		t.Errorf("last notified = %v, %v; want today", last, ok)
	}

	f.notifier.Reset()
	f.worker.RunPass(ctx, passTime)
	if len(f.notifier.Sent()) != 0 {
		t.Errorf("second pass sent %d messages", len(f.notifier.Sent()))
	}
}

func TestRunPass_UpcomingOncePerDay(t *testing.T) {
	tests := []struct {
		name     string
		lastDay  *time.Time
		wantSend bool
	}{
		{"unset", nil, true},
		{"notified yesterday", ptr(passDay.AddDate(0, 0, -1)), true},
		{"notified today", ptr(passDay), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReminderFixture(t)
			user := "@a:example.org"
			mustAddEvent(t, f.store, user, "Dad", passDay.AddDate(0, 0, 2))
			if tt.lastDay != nil {
				f.mark(t, user, *tt.lastDay)
			}

			f.worker.RunPass(context.Background(), passTime)

			sent := f.notifier.Sent()
			if got := len(sent) == 1; got != tt.wantSend {
				t.Fatalf("sent = %+v, want send=%v", sent, tt.wantSend)
			}
			if tt.wantSend && sent[0].Text != "⏳ *Dad* is in 2 day(s)." {
				t.Errorf("text = %q", sent[0].Text)
			}
			last, ok, _ := f.cache.LastNotified(context.Background(), user)
			if !ok || !last.Equal(passDay) {
				t.Errorf("last notified = %v, %v; want today", last, ok)
			}
		})
	}
}

func TestRunPass_LongRangeWeekly(t *testing.T) {
	tests := []struct {
		name     string
		lastDay  *time.Time
		wantSend bool
	}{
		{"unset", nil, true},
		{"three days ago", ptr(passDay.AddDate(0, 0, -3)), false},
		{"seven days ago", ptr(passDay.AddDate(0, 0, -7)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReminderFixture(t)
			user := "@a:example.org"
			mustAddEvent(t, f.store, user, "Trip", passDay.AddDate(0, 0, 10))
			if tt.lastDay != nil {
				f.mark(t, user, *tt.lastDay)
			}

			f.worker.RunPass(context.Background(), passTime)

			sent := f.notifier.Sent()
			if got := len(sent) == 1; got != tt.wantSend {
				t.Fatalf("sent = %+v, want send=%v", sent, tt.wantSend)
			}
			last, _, _ := f.cache.LastNotified(context.Background(), user)
			if tt.wantSend && !last.Equal(passDay) {
				t.Errorf("last notified = %v, want today", last)
			}
			if !tt.wantSend && !last.Equal(*tt.lastDay) {
				t.Errorf("last notified moved to %v without a send", last)
			}
		})
	}
}

func TestRunPass_FailureDoesNotStopPass(t *testing.T) {
	f := newReminderFixture(t, "@a:example.org")
	ctx := context.Background()
	mustAddEvent(t, f.store, "@a:example.org", "A", passDay)
	mustAddEvent(t, f.store, "@b:example.org", "B", passDay)

	summary := f.worker.RunPass(ctx, passTime)

	sent := f.notifier.Sent()
	if len(sent) != 1 || sent[0].UserID != "@b:example.org" {
		t.Fatalf("sent = %+v", sent)
	}
	if summary.Failed != 1 || summary.Sent != 1 {
		t.Errorf("summary = %+v", summary)
	}
	// A failed day-of send keeps the event.
	if _, err := f.store.GetNearestEvent(ctx, "@a:example.org", passDay); err != nil {
		t.Errorf("event for failed user removed: %v", err)
	}
	if len(f.reports) != 1 || f.reports[0].ID != summary.ID {
		t.Errorf("reports = %+v", f.reports)
	}
}

func TestRunPass_UndeliveredDayOfEventIsPurgedNextDay(t *testing.T) {
	f := newReminderFixture(t, "@a:example.org")
	ctx := context.Background()
	user := "@a:example.org"
	mustAddEvent(t, f.store, user, "A", passDay)

	if summary := f.worker.RunPass(ctx, passTime); summary.Failed != 1 || summary.Purged != 0 {
		t.Fatalf("first pass summary = %+v", summary)
	}

	delete(f.notifier.failFor, user)
	summary := f.worker.RunPass(ctx, passTime.AddDate(0, 0, 1))

	if len(f.notifier.Sent()) != 0 {
		t.Errorf("sent %+v for a past event", f.notifier.Sent())
	}
	if summary.Purged != 1 {
		t.Errorf("purged = %d, want 1", summary.Purged)
	}
	n, err := f.store.CountEventsForUser(ctx, user)
	if err != nil || n != 0 {
		t.Errorf("CountEventsForUser() = %d, %v; want the slot freed", n, err)
	}
}

func ptr(t time.Time) *time.Time { return &t }

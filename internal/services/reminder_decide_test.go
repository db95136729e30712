package services

import (
	"strings"
	"testing"
	"time"

	"datekeeper/internal/models"
)

func TestDecide(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	daysAgo := func(n int) time.Time { return today.AddDate(0, 0, -n) }

	tests := []struct {
		name    string
		days    int
		last    time.Time
		hasLast bool
		want    reminderDecision
	}{
		{"today, never notified", 0, time.Time{}, false,
			reminderDecision{Kind: models.ReminderToday, Send: true, Delete: true, Mark: true}},
		{"today, already notified today", 0, today, true,
			reminderDecision{Kind: models.ReminderToday, Send: true, Delete: true, Mark: true}},
		{"upcoming, unset", 2, time.Time{}, false,
			reminderDecision{Kind: models.ReminderUpcoming, Send: true, Mark: true}},
		{"upcoming, notified yesterday", 2, daysAgo(1), true,
			reminderDecision{Kind: models.ReminderUpcoming, Send: true, Mark: true}},
		{"upcoming, notified today", 2, today, true,
			reminderDecision{Kind: models.ReminderUpcoming, Send: false, Mark: true}},
		{"upcoming edge", 3, today, true,
			reminderDecision{Kind: models.ReminderUpcoming, Send: false, Mark: true}},
		{"long range, unset", 10, time.Time{}, false,
			reminderDecision{Kind: models.ReminderLongRange, Send: true, Mark: true}},
		{"long range, 3 days ago", 10, daysAgo(3), true,
			reminderDecision{Kind: models.ReminderNone}},
		{"long range, 6 days ago", 4, daysAgo(6), true,
			reminderDecision{Kind: models.ReminderNone}},
		{"long range, 7 days ago", 10, daysAgo(7), true,
			reminderDecision{Kind: models.ReminderLongRange, Send: true, Mark: true}},
		{"past event", -1, time.Time{}, false,
			reminderDecision{Kind: models.ReminderNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decide(tt.days, tt.last, tt.hasLast, today); got != tt.want {
				t.Errorf("decide(%d) = %+v, want %+v", tt.days, got, tt.want)
			}
		})
	}
}

func TestReminderText(t *testing.T) {
	tests := []struct {
		kind models.ReminderKind
		days int
		want string
	}{
		{models.ReminderToday, 0, "🎉 Today: *Mom*!"},
		{models.ReminderUpcoming, 2, "⏳ *Mom* is in 2 day(s)."},
		{models.ReminderLongRange, 12, "📅 Reminder: your next event *Mom* is in 12 days."},
	}
	for _, tt := range tests {
		if got := reminderText(tt.kind, "Mom", tt.days); got != tt.want {
			t.Errorf("reminderText(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPassReport(t *testing.T) {
	summary := PassSummary{
		ID:   "pass-1",
		Day:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Sent: 1,
		Notifications: []models.Notification{
			{UserID: "@a:example.org", Kind: models.ReminderToday},
		},
	}
	subject, plain, html := passReport(summary)
	if subject != "Reminder pass 10.03.2026: 1 sent, 0 failed" {
		t.Errorf("subject = %q", subject)
	}
	for _, body := range []string{plain, html} {
		if !strings.Contains(body, "@a:example.org") || !strings.Contains(body, "today") {
			t.Errorf("report body missing notification: %q", body)
		}
	}
}

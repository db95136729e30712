package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datekeeper/internal/models"
	"datekeeper/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// UpcomingWindowDays is the widest gap that still counts as upcoming.
	UpcomingWindowDays = 3
	// LongRangeIntervalDays is the minimum gap between long-range reminders.
	LongRangeIntervalDays = 7
)

// reminderDecision is what one pass does for one user.
type reminderDecision struct {
	Kind   models.ReminderKind
	Send   bool
	Delete bool
	Mark   bool
}

// decide applies the reminder bands to an event days away. last is the day
// the user was last notified, valid when hasLast is true.
func decide(days int, last time.Time, hasLast bool, today time.Time) reminderDecision {
	switch {
	case days == 0:
		return reminderDecision{Kind: models.ReminderToday, Send: true, Delete: true, Mark: true}
	case days > 0 && days <= UpcomingWindowDays:
		send := !hasLast || !models.Day(last).Equal(models.Day(today))
		return reminderDecision{Kind: models.ReminderUpcoming, Send: send, Mark: true}
	case days > UpcomingWindowDays:
		if !hasLast || models.DaysBetween(last, today) >= LongRangeIntervalDays {
			return reminderDecision{Kind: models.ReminderLongRange, Send: true, Mark: true}
		}
	}
	return reminderDecision{Kind: models.ReminderNone}
}

// reminderText renders the Markdown body for a reminder.
func reminderText(kind models.ReminderKind, name string, days int) string {
	switch kind {
	case models.ReminderToday:
		return fmt.Sprintf("🎉 Today: *%s*!", name)
	case models.ReminderUpcoming:
		return fmt.Sprintf("⏳ *%s* is in %d day(s).", name, days)
	default:
		return fmt.Sprintf("📅 Reminder: your next event *%s* is in %d days.", name, days)
	}
}

// PassSummary describes one scheduler pass.
type PassSummary struct {
	ID            string                `json:"id"`
	Day           time.Time             `json:"day"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	Users         int                   `json:"users"`
	Skipped       int                   `json:"skipped"`
	Sent          int                   `json:"sent"`
	Deleted       int                   `json:"deleted"`
	Purged        int64                 `json:"purged"`
	Failed        int                   `json:"failed"`
	Notifications []models.Notification `json:"notifications"`
}

// PassReporter receives the summary after every pass.
type PassReporter interface {
	ReportPass(ctx context.Context, summary PassSummary) error
}

// ReminderWorkerConfig wires a ReminderWorker.
type ReminderWorkerConfig struct {
	Events   store.EventStore
	Cache    NotificationCache
	Notifier Notifier
	// Reporter is optional.
	Reporter   PassReporter
	Trigger    *DailyTrigger
	RetryDelay time.Duration
	Clock      Clock
	Logger     *zap.Logger
}

// ReminderWorker notifies users about their nearest event once a day.
type ReminderWorker struct {
	events     store.EventStore
	cache      NotificationCache
	notifier   Notifier
	reporter   PassReporter
	trigger    *DailyTrigger
	retryDelay time.Duration
	clock      Clock
	logger     *zap.Logger
}

func NewReminderWorker(cfg ReminderWorkerConfig) *ReminderWorker {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryNotificationCache()
	}
	return &ReminderWorker{
		events:     cfg.Events,
		cache:      cfg.Cache,
		notifier:   cfg.Notifier,
		reporter:   cfg.Reporter,
		trigger:    cfg.Trigger,
		retryDelay: cfg.RetryDelay,
		clock:      cfg.Clock,
		logger:     cfg.Logger.Named("reminder"),
	}
}

// Start runs the worker in its own goroutine.
func (w *ReminderWorker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run blocks until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	RunDaily(ctx, DailyOptions{
		Name:       "reminder",
		Trigger:    w.trigger,
		Ready:      w.events.Ping,
		RetryDelay: w.retryDelay,
		Clock:      w.clock,
		Logger:     w.logger,
	}, func(ctx context.Context, now time.Time) {
		w.RunPass(ctx, now)
	})
}

// RunPass evaluates every user once. Failures for one user are logged and
// do not stop the pass.
func (w *ReminderWorker) RunPass(ctx context.Context, now time.Time) PassSummary {
	today := models.Day(now.In(w.trigger.Location))
	summary := PassSummary{
		ID:        uuid.NewString(),
		Day:       today,
		StartedAt: w.clock.Now(),
	}
	log := w.logger.With(zap.String("pass_id", summary.ID), zap.String("day", today.Format("2006-01-02")))

	userIDs, err := w.events.GetAllUserIDs(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		summary.Failed++
		return w.finish(ctx, log, summary)
	}
	summary.Users = len(userIDs)

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			log.Warn("pass interrupted", zap.Error(ctx.Err()))
			break
		}
		n, err := w.processUser(ctx, userID, today)
		switch {
		case errors.Is(err, store.ErrNotFound):
			summary.Skipped++
		case err != nil:
			log.Error("reminder failed", zap.String("user_id", userID), zap.Error(err))
			summary.Failed++
		case n == nil:
			summary.Skipped++
		default:
			summary.Sent++
			if n.Kind == models.ReminderToday {
				summary.Deleted++
			}
			summary.Notifications = append(summary.Notifications, *n)
		}
	}

	// Past events were evaluated (and skipped) above; now drop them so they
	// stop counting against the user's event limit.
	purged, err := w.events.DeletePastEvents(ctx, today)
	if err != nil {
		log.Error("failed to purge past events", zap.Error(err))
		summary.Failed++
	}
	summary.Purged = purged

	return w.finish(ctx, log, summary)
}

// processUser returns the notification sent, nil when nothing was due.
func (w *ReminderWorker) processUser(ctx context.Context, userID string, today time.Time) (*models.Notification, error) {
	event, err := w.events.GetNearestEvent(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	days := models.DaysBetween(today, event.Date())
	last, hasLast, err := w.cache.LastNotified(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read notification cache: %w", err)
	}

	d := decide(days, last, hasLast, today)
	var sent *models.Notification
	if d.Send {
		text := reminderText(d.Kind, event.Name, days)
		if err := w.notifier.SendMessage(ctx, userID, text, FormatMarkdown); err != nil {
			return nil, fmt.Errorf("send %s reminder: %w", d.Kind, err)
		}
		sent = &models.Notification{
			UserID:   userID,
			EventID:  event.ID,
			Kind:     d.Kind,
			DaysLeft: days,
			Text:     text,
		}
	}

	if d.Delete {
		if err := w.events.DeleteEvent(ctx, event.ID); err != nil {
			return sent, fmt.Errorf("delete notified event %d: %w", event.ID, err)
		}
	}
	if d.Mark {
		if err := w.cache.MarkNotified(ctx, userID, today); err != nil {
			return sent, fmt.Errorf("mark notified: %w", err)
		}
	}
	return sent, nil
}

func (w *ReminderWorker) finish(ctx context.Context, log *zap.Logger, summary PassSummary) PassSummary {
	summary.FinishedAt = w.clock.Now()
	log.Info("reminder pass finished",
		zap.Int("users", summary.Users),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("deleted", summary.Deleted),
		zap.Int64("purged", summary.Purged),
		zap.Int("failed", summary.Failed),
	)
	if w.reporter != nil {
		if err := w.reporter.ReportPass(ctx, summary); err != nil {
			log.Warn("failed to report pass", zap.Error(err))
		}
	}
	return summary
}

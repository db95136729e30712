package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Clock is an interface over time.Now and time.After so loops can be driven
// by a fake clock in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// DailyTrigger fires at most once per calendar day, during one fixed hour.
type DailyTrigger struct {
	Hour     int
	Location *time.Location

	schedule cron.Schedule
}

// NewDailyTrigger builds a trigger for the given hour (0-23) in loc.
func NewDailyTrigger(hour int, loc *time.Location) (*DailyTrigger, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("trigger hour %d out of range", hour)
	}
	if loc == nil {
		loc = time.Local
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("0 %d * * *", hour))
	if err != nil {
		return nil, fmt.Errorf("parse daily schedule: %w", err)
	}
	// ParseStandard defaults to time.Local; pin the schedule to loc.
	if spec, ok := sched.(*cron.SpecSchedule); ok {
		spec.Location = loc
	}
	return &DailyTrigger{Hour: hour, Location: loc, schedule: sched}, nil
}

// ShouldFire reports whether a run is due: now is inside the designated hour
// and the last run, if any, was on a different calendar day.
func (t *DailyTrigger) ShouldFire(now, lastRun time.Time) bool {
	local := now.In(t.Location)
	if local.Hour() != t.Hour {
		return false
	}
	if lastRun.IsZero() {
		return true
	}
	ly, lm, ld := lastRun.In(t.Location).Date()
	ny, nm, nd := local.Date()
	return ly != ny || lm != nm || ld != nd
}

// Next returns the start of the next designated hour strictly after now.
func (t *DailyTrigger) Next(now time.Time) time.Time {
	return t.schedule.Next(now)
}

// DailyJob is one run of a daily loop. now is the clock reading that fired it.
type DailyJob func(ctx context.Context, now time.Time)

// DailyOptions configures RunDaily.
type DailyOptions struct {
	Name    string
	Trigger *DailyTrigger
	// Ready is checked before every evaluation; while it fails the loop waits RetryDelay.
	Ready      func(ctx context.Context) error
	RetryDelay time.Duration
	Clock      Clock
	Logger     *zap.Logger
}

// RunDaily blocks until ctx is cancelled, calling job once per day at the
// trigger hour. A process started after the hour waits for the next day.
func RunDaily(ctx context.Context, opts DailyOptions, job DailyJob) {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("loop", opts.Name))
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = 5 * time.Second
	}

	var lastRun time.Time
	for {
		if ctx.Err() != nil {
			return
		}

		if opts.Ready != nil {
			if err := opts.Ready(ctx); err != nil {
				log.Warn("store not ready, waiting", zap.Error(err), zap.Duration("retry_in", retry))
				if !sleep(ctx, clock, retry) {
					return
				}
				continue
			}
		}

		now := clock.Now()
		if opts.Trigger.ShouldFire(now, lastRun) {
			log.Info("daily run starting", zap.Time("at", now))
			job(ctx, now)
			lastRun = now
		}

		wakeAt := opts.Trigger.Next(clock.Now())
		if !sleep(ctx, clock, wakeAt.Sub(clock.Now())) {
			return
		}
	}
}

// sleep waits for d or until ctx is done; it reports false on cancellation.
func sleep(ctx context.Context, clock Clock, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-clock.After(d):
		return true
	}
}

package store_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"datekeeper/internal/models"
	"datekeeper/internal/store"
	"datekeeper/internal/testutil"

	"gorm.io/gorm"
)

const giftLimit = 5

func TestConsumeGiftCall_LimitAndReset(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	user := "@a:example.org"

	for i := 1; i <= giftLimit; i++ {
		ok, err := s.ConsumeGiftCall(ctx, user, today, giftLimit)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("call %d rejected, want allowed", i)
		}
	}

	ok, err := s.ConsumeGiftCall(ctx, user, today, giftLimit)
	if err != nil {
		t.Fatalf("call 6: %v", err)
	}
	if ok {
		t.Fatal("call 6 allowed, want rejected")
	}

	n, err := s.GetGiftCounterForToday(ctx, user, today)
	if err != nil || n != giftLimit {
		t.Fatalf("GetGiftCounterForToday() = %d, %v; want %d", n, err, giftLimit)
	}

	reset, err := s.ResetAllGiftCounters(ctx)
	if err != nil || reset != 1 {
		t.Fatalf("ResetAllGiftCounters() = %d, %v; want 1", reset, err)
	}

	ok, err = s.ConsumeGiftCall(ctx, user, today, giftLimit)
	if err != nil || !ok {
		t.Fatalf("call after reset = %v, %v; want allowed", ok, err)
	}
}

func TestConsumeGiftCall_StaleDateRollsOver(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	user := "@a:example.org"
	yesterday := today.AddDate(0, 0, -1)

	if err := s.DB().Create(&models.GiftUsage{
		UserID:       user,
		CallsToday:   giftLimit,
		LastCallDate: models.NewDate(yesterday),
	}).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	n, err := s.GetGiftCounterForToday(ctx, user, today)
	if err != nil || n != 0 {
		t.Fatalf("GetGiftCounterForToday() = %d, %v; want 0 for stale row", n, err)
	}

	ok, err := s.ConsumeGiftCall(ctx, user, today, giftLimit)
	if err != nil || !ok {
		t.Fatalf("ConsumeGiftCall() = %v, %v; want allowed", ok, err)
	}

	n, _ = s.GetGiftCounterForToday(ctx, user, today)
	if n != 1 {
		t.Errorf("counter after rollover = %d, want 1", n)
	}
}

// slowGiftReads delays every read of gift_usage so that concurrent
// transactions overlap between reading the counter and writing it back.
// Only the row lock (or SQLite's BEGIN IMMEDIATE) keeps them apart.
func slowGiftReads(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Query().After("gorm:query").Register("datekeeper:slow_gift_read", func(tx *gorm.DB) {
		if tx.Statement.Table == "gift_usage" {
			time.Sleep(25 * time.Millisecond)
		}
	})
	if err != nil {
		t.Fatalf("register query callback: %v", err)
	}
}

func TestConsumeGiftCall_ConcurrentAtLastUnit(t *testing.T) {
	const workers = 8

	backends := []struct {
		name string
		open func(t *testing.T) *gorm.DB
	}{
		{"sqlite_file", func(t *testing.T) *gorm.DB { return testutil.NewPooledTestDB(t, workers) }},
		{"server", testutil.NewServerTestDB},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			db := b.open(t)
			slowGiftReads(t, db)
			s := store.New(db)
			ctx := context.Background()
			user := fmt.Sprintf("@concurrent-%d:example.org", time.Now().UnixNano())

			if err := db.Create(&models.GiftUsage{
				UserID:       user,
				CallsToday:   giftLimit - 1,
				LastCallDate: models.NewDate(today),
			}).Error; err != nil {
				t.Fatalf("seed usage: %v", err)
			}
			t.Cleanup(func() {
				db.Where("user_id = ?", user).Delete(&models.GiftUsage{})
			})

			var (
				wg      sync.WaitGroup
				start   = make(chan struct{})
				allowed atomic.Int32
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					ok, err := s.ConsumeGiftCall(ctx, user, today, giftLimit)
					if err != nil {
						t.Errorf("ConsumeGiftCall: %v", err)
						return
					}
					if ok {
						allowed.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			if got := allowed.Load(); got != 1 {
				t.Fatalf("allowed = %d, want exactly 1", got)
			}
			n, err := s.GetGiftCounterForToday(ctx, user, today)
			if err != nil {
				t.Fatalf("GetGiftCounterForToday: %v", err)
			}
			if n != giftLimit {
				t.Errorf("counter = %d, want %d", n, giftLimit)
			}
		})
	}
}

func TestGiftStats(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	stats, err := s.GiftStats(ctx, today)
	if err != nil {
		t.Fatalf("GiftStats on empty table: %v", err)
	}
	if stats.Calls != 0 || stats.Users != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	for _, user := range []string{"@a:example.org", "@a:example.org", "@b:example.org"} {
		if _, err := s.ConsumeGiftCall(ctx, user, today, giftLimit); err != nil {
			t.Fatalf("ConsumeGiftCall: %v", err)
		}
	}
	if _, err := s.ConsumeGiftCall(ctx, "@c:example.org", today.AddDate(0, 0, -1), giftLimit); err != nil {
		t.Fatalf("ConsumeGiftCall: %v", err)
	}

	stats, err = s.GiftStats(ctx, today)
	if err != nil {
		t.Fatalf("GiftStats: %v", err)
	}
	if stats.Calls != 3 || stats.Users != 2 {
		t.Errorf("GiftStats() = %+v, want 3 calls by 2 users", stats)
	}
}

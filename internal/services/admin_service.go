package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"datekeeper/internal/models"
	"datekeeper/internal/store"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

// ActiveWindowDays is how far back an event date keeps its owner counted as active.
const ActiveWindowDays = 30

// BroadcastResult is the outcome of one broadcast.
type BroadcastResult struct {
	ID          string   `json:"id"`
	Total       int      `json:"total"`
	Success     int      `json:"success"`
	Failed      int      `json:"failed"`
	FailedUsers []string `json:"failed_users"`
}

// BroadcastReporter receives every finished broadcast.
type BroadcastReporter interface {
	ReportBroadcast(ctx context.Context, result BroadcastResult) error
}

// AdminServiceConfig wires an AdminService.
type AdminServiceConfig struct {
	AdminID    string
	Events     store.EventStore
	Stats      store.StatsStore
	Quotas     store.QuotaStore
	Broadcasts store.BroadcastStore
	Notifier   Notifier
	Quota      *QuotaService
	// PerSecond caps broadcast sends; defaults to 10.
	PerSecond float64
	Reporter  BroadcastReporter
	Logger    *zap.Logger
}

// AdminService implements statistics and broadcasts for the admin user.
type AdminService struct {
	adminID    string
	events     store.EventStore
	stats      store.StatsStore
	quotas     store.QuotaStore
	broadcasts store.BroadcastStore
	notifier   Notifier
	quota      *QuotaService
	perSecond  float64
	reporter   BroadcastReporter
	logger     *zap.Logger
}

func NewAdminService(cfg AdminServiceConfig) *AdminService {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &AdminService{
		adminID:    cfg.AdminID,
		events:     cfg.Events,
		stats:      cfg.Stats,
		quotas:     cfg.Quotas,
		broadcasts: cfg.Broadcasts,
		notifier:   cfg.Notifier,
		quota:      cfg.Quota,
		perSecond:  cfg.PerSecond,
		reporter:   cfg.Reporter,
		logger:     cfg.Logger.Named("admin"),
	}
}

// IsAdmin reports whether userID is the configured admin. No admin means nobody is.
func (s *AdminService) IsAdmin(userID string) bool {
	return s.adminID != "" && userID == s.adminID
}

// Stats collects the usage summary.
func (s *AdminService) Stats(ctx context.Context) (models.Stats, error) {
	today := s.quota.Today()

	total, err := s.stats.CountUsers(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	active, err := s.stats.CountActiveUsers(ctx, today.AddDate(0, 0, -ActiveWindowDays))
	if err != nil {
		return models.Stats{}, err
	}
	gift, err := s.quotas.GiftStats(ctx, today)
	if err != nil {
		return models.Stats{}, err
	}

	return models.Stats{
		TotalUsers:     total,
		ActiveUsers:    active,
		GiftCallsToday: gift.Calls,
		GiftUsersToday: gift.Users,
		GiftDailyLimit: s.quota.GiftDailyLimit(),
	}, nil
}

// Broadcast sends text to every user that owns an event, paced by a rate
// limiter, and records the outcome. A cancelled ctx stops sending; the
// partial result is still recorded.
func (s *AdminService) Broadcast(ctx context.Context, adminID, text string) (BroadcastResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return BroadcastResult{}, ErrEmptyBroadcast
	}

	userIDs, err := s.events.GetAllUserIDs(ctx)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("list broadcast recipients: %w", err)
	}

	result := BroadcastResult{Total: len(userIDs), FailedUsers: []string{}}
	limiter := rate.NewLimiter(rate.Limit(s.perSecond), 1)
	started := time.Now()

	for _, userID := range userIDs {
		if err := limiter.Wait(ctx); err != nil {
			s.logger.Warn("broadcast interrupted", zap.Error(err), zap.Int("sent", result.Success))
			break
		}
		if err := s.notifier.SendMessage(ctx, userID, text, FormatPlain); err != nil {
			s.logger.Warn("broadcast delivery failed", zap.String("user_id", userID), zap.Error(err))
			result.Failed++
			result.FailedUsers = append(result.FailedUsers, userID)
			continue
		}
		result.Success++
	}

	failed, err := json.Marshal(result.FailedUsers)
	if err != nil {
		return result, fmt.Errorf("encode failed users: %w", err)
	}
	record := &models.Broadcast{
		AdminID:      adminID,
		Message:      text,
		SuccessCount: result.Success,
		FailedCount:  result.Failed,
		FailedUsers:  datatypes.JSON(failed),
	}
	// The sends already happened, so the audit row is written even if ctx is done.
	if err := s.broadcasts.SaveBroadcast(context.WithoutCancel(ctx), record); err != nil {
		return result, err
	}
	result.ID = record.ID

	s.logger.Info("broadcast finished",
		zap.String("broadcast_id", record.ID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Duration("took", time.Since(started)),
	)

	if s.reporter != nil {
		if err := s.reporter.ReportBroadcast(ctx, result); err != nil {
			s.logger.Warn("failed to report broadcast", zap.Error(err))
		}
	}
	return result, nil
}

// RecentBroadcasts lists the latest broadcasts.
func (s *AdminService) RecentBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error) {
	return s.broadcasts.ListBroadcasts(ctx, limit)
}

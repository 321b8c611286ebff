package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/persistence"
	"github.com/command-center/helpdesk/internal/repository"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

const (
	dashboardCacheKey = "analytics:dashboard"
	dashboardCacheTTL = 30 * time.Second
)

// AnalyticsService serves the admin dashboard, caching aggregates in redis
// for a short window. Cache failures degrade to direct queries.
type AnalyticsService struct {
	analytics repository.AnalyticsRepository
	cache     *persistence.Redis
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(analytics repository.AnalyticsRepository, cache *persistence.Redis, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Dashboard returns the aggregate metrics, from cache when fresh.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	if cached, err := s.cache.GetCached(ctx, dashboardCacheKey); err == nil && cached != "" {
		var stats repository.DashboardStats
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.analytics.DashboardStats(ctx, s.now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if encoded, err := json.Marshal(stats); err == nil {
		if err := s.cache.SetCached(ctx, dashboardCacheKey, string(encoded), dashboardCacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

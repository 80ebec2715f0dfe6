package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type analyticsRepository interface {
	CountIncidents(ctx context.Context) (int, error)
	CountIncidentsByStatus(ctx context.Context, status models.IncidentStatus) (int, error)
	CountHighPriorityOpen(ctx context.Context) (int, error)
	WeeklyTrends(ctx context.Context, weeks int) ([]models.WeeklyTrendPoint, error)
	CategoryBreakdown(ctx context.Context) ([]models.CategoryCount, error)
	Hotspots(ctx context.Context, limit int) ([]models.HotspotCount, error)
	CountAssignments(ctx context.Context, investigatorID int64) (int, error)
	CountAssignmentsByStatus(ctx context.Context, investigatorID int64, status models.IncidentStatus) (int, error)
	CountAssignmentsSince(ctx context.Context, investigatorID int64, since time.Time) (int, error)
	UpcomingDeadlines(ctx context.Context, investigatorID int64, limit int) ([]models.UpcomingDeadline, error)
	CountIncidentsByReporter(ctx context.Context, userID int64) (int, error)
	CountIncidentsByReporterAndStatus(ctx context.Context, userID int64, status models.IncidentStatus) (int, error)
	ActiveIncidents(ctx context.Context, userID int64, limit int) ([]models.ActiveIncident, error)
	CountBySubmitter(ctx context.Context, userID int64) (int, error)
}

type analyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type analyticsMetrics interface {
	RecordCacheLookup(hit bool)
	SetOpenIncidents(n int)
}

// AnalyticsService computes role-scoped dashboard rollups, optionally
// serving them from Redis.
type AnalyticsService struct {
	repo    analyticsRepository
	cache   analyticsCache
	metrics analyticsMetrics
	logger  *zap.Logger
	ttl     time.Duration
}

// NewAnalyticsService constructs an AnalyticsService instance. cache may be
// nil when the analytics cache is disabled.
func NewAnalyticsService(repo analyticsRepository, cache analyticsCache, metrics analyticsMetrics, logger *zap.Logger, ttl time.Duration) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger, ttl: ttl}
}

// Summary dispatches to the role-specific rollup.
func (s *AnalyticsService) Summary(ctx context.Context, caller *models.JWTClaims) (interface{}, error) {
	switch caller.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return s.AdminSummary(ctx)
	case models.RoleInvestigator:
		return s.InvestigatorSummary(ctx, caller.UserID)
	}
	return s.VictimSummary(ctx, caller.UserID)
}

// AdminSummary returns the platform-wide rollup.
func (s *AnalyticsService) AdminSummary(ctx context.Context) (*models.AdminSummary, error) {
	var cached models.AdminSummary
	if s.lookup(ctx, "analytics:admin", &cached) {
		return &cached, nil
	}

	total, err := s.repo.CountIncidents(ctx)
	if err != nil {
		return nil, s.wrap(err)
	}
	critical, err := s.repo.CountHighPriorityOpen(ctx)
	if err != nil {
		return nil, s.wrap(err)
	}
	resolved, err := s.repo.CountIncidentsByStatus(ctx, models.StatusResolved)
	if err != nil {
		return nil, s.wrap(err)
	}
	inProgress, err := s.repo.CountIncidentsByStatus(ctx, models.StatusInProgress)
	if err != nil {
		return nil, s.wrap(err)
	}
	trends, err := s.repo.WeeklyTrends(ctx, 4)
	if err != nil {
		return nil, s.wrap(err)
	}
	categories, err := s.repo.CategoryBreakdown(ctx)
	if err != nil {
		return nil, s.wrap(err)
	}
	hotspots, err := s.repo.Hotspots(ctx, 5)
	if err != nil {
		return nil, s.wrap(err)
	}

	if s.metrics != nil {
		s.metrics.SetOpenIncidents(total - resolved)
	}

	summary := &models.AdminSummary{
		TotalIncidents:    total,
		CriticalIncidents: critical,
		SolvedIncidents:   resolved,
		InProgressCases:   inProgress,
		ResolvedCases:     resolved,
		WeeklyTrends:      trends,
		Categories:        categories,
		Hotspots:          hotspots,
	}
	s.store(ctx, "analytics:admin", summary)
	return summary, nil
}

// InvestigatorSummary returns the caseload rollup for one investigator.
// SuccessRate is 0 when no cases are assigned, never a division error.
func (s *AnalyticsService) InvestigatorSummary(ctx context.Context, investigatorID int64) (*models.InvestigatorSummary, error) {
	key := fmt.Sprintf("analytics:investigator:%d", investigatorID)
	var cached models.InvestigatorSummary
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	total, err := s.repo.CountAssignments(ctx, investigatorID)
	if err != nil {
		return nil, s.wrap(err)
	}
	inProgress, err := s.repo.CountAssignmentsByStatus(ctx, investigatorID, models.StatusInProgress)
	if err != nil {
		return nil, s.wrap(err)
	}
	assigned, err := s.repo.CountAssignmentsByStatus(ctx, investigatorID, models.StatusAssigned)
	if err != nil {
		return nil, s.wrap(err)
	}
	resolved, err := s.repo.CountAssignmentsByStatus(ctx, investigatorID, models.StatusResolved)
	if err != nil {
		return nil, s.wrap(err)
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	thisMonth, err := s.repo.CountAssignmentsSince(ctx, investigatorID, monthStart)
	if err != nil {
		return nil, s.wrap(err)
	}
	deadlines, err := s.repo.UpcomingDeadlines(ctx, investigatorID, 3)
	if err != nil {
		return nil, s.wrap(err)
	}

	var successRate float64
	if total > 0 {
		successRate = float64(resolved) / float64(total) * 100
	}

	summary := &models.InvestigatorSummary{
		TotalAssignedCases: total,
		InProgressCases:    inProgress + assigned,
		ResolvedCases:      resolved,
		SuccessRate:        successRate,
		CasesThisMonth:     thisMonth,
		UpcomingDeadlines:  deadlines,
	}
	s.store(ctx, key, summary)
	return summary, nil
}

// VictimSummary returns the rollup over the caller's own incidents.
func (s *AnalyticsService) VictimSummary(ctx context.Context, userID int64) (*models.VictimSummary, error) {
	key := fmt.Sprintf("analytics:victim:%d", userID)
	var cached models.VictimSummary
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	total, err := s.repo.CountIncidentsByReporter(ctx, userID)
	if err != nil {
		return nil, s.wrap(err)
	}
	inProgress, err := s.repo.CountIncidentsByReporterAndStatus(ctx, userID, models.StatusInProgress)
	if err != nil {
		return nil, s.wrap(err)
	}
	assigned, err := s.repo.CountIncidentsByReporterAndStatus(ctx, userID, models.StatusAssigned)
	if err != nil {
		return nil, s.wrap(err)
	}
	resolved, err := s.repo.CountIncidentsByReporterAndStatus(ctx, userID, models.StatusResolved)
	if err != nil {
		return nil, s.wrap(err)
	}
	evidenceCount, err := s.repo.CountBySubmitter(ctx, userID)
	if err != nil {
		return nil, s.wrap(err)
	}
	active, err := s.repo.ActiveIncidents(ctx, userID, 3)
	if err != nil {
		return nil, s.wrap(err)
	}
	for i := range active {
		active[i].Progress = models.ProgressFor(active[i].Status)
	}

	summary := &models.VictimSummary{
		TotalIncidents:    total,
		InProgressCases:   inProgress + assigned,
		ResolvedCases:     resolved,
		EvidenceSubmitted: evidenceCount,
		ActiveIncidents:   active,
	}
	s.store(ctx, key, summary)
	return summary, nil
}

func (s *AnalyticsService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(true)
		}
		return true
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(false)
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *AnalyticsService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AnalyticsService) wrap(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute analytics")
}

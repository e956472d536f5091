package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/observability"
	"github.com/noah-isme/attendance-api/internal/repository"
)

// weekdayClusterThreshold is the number of same-weekday absences that raises
// the clustering pattern flag.
const weekdayClusterThreshold = 3

// AnalyticsService derives rolling per-student attendance statistics from
// current-version records. Snapshots are recomputed whole on demand; reads of
// a fresh snapshot never touch the records.
type AnalyticsService interface {
	AnalyticsInvalidator
	Snapshot(ctx context.Context, studentID uint, asOf time.Time) (dto.AnalyticsResponse, error)
	CriticalCases(ctx context.Context, asOf time.Time) ([]dto.AnalyticsResponse, error)
}

type analyticsService struct {
	records   repository.RecordRepository
	snapshots repository.AnalyticsRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	notifier  Notifier
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAnalyticsService builds the analytics engine. The redis client is an
// optional fast path over the persisted snapshots; nil disables it.
func NewAnalyticsService(
	records repository.RecordRepository,
	snapshots repository.AnalyticsRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	notifier Notifier,
	logger zerolog.Logger,
) AnalyticsService {
	return &analyticsService{
		records:   records,
		snapshots: snapshots,
		cache:     cache,
		cacheTTL:  cacheTTL,
		notifier:  notifier,
		logger:    logger.With().Str("component", "analytics_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/attendance-api/internal/service/analytics"),
		now:       time.Now,
	}
}

func (s *analyticsService) Invalidate(ctx context.Context, studentID uint) error {
	if err := s.snapshots.MarkStale(ctx, studentID); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, snapshotCacheKey(studentID)).Err(); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to drop analytics cache entry")
		}
	}

	return nil
}

func (s *analyticsService) Snapshot(ctx context.Context, studentID uint, asOf time.Time) (dto.AnalyticsResponse, error) {
	date := dateOnly(asOf)

	if cached, ok := s.cachedResponse(ctx, studentID, date); ok {
		return cached, nil
	}

	stored, err := s.snapshots.Get(ctx, studentID, date)
	if err == nil && stored.Fresh(date) {
		response := dto.NewAnalyticsResponse(stored)
		s.storeResponse(ctx, studentID, response)
		return response, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AnalyticsResponse{}, err
	}

	snapshot, err := s.recompute(ctx, studentID, date)
	if err != nil {
		return dto.AnalyticsResponse{}, err
	}

	response := dto.NewAnalyticsResponse(snapshot)
	s.storeResponse(ctx, studentID, response)

	return response, nil
}

func (s *analyticsService) CriticalCases(ctx context.Context, asOf time.Time) ([]dto.AnalyticsResponse, error) {
	date := dateOnly(asOf)

	refreshIDs, err := s.snapshots.ListStudentIDsNeedingRefresh(ctx, date)
	if err != nil {
		return nil, err
	}

	for _, studentID := range refreshIDs {
		if _, err := s.recompute(ctx, studentID, date); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to refresh snapshot")
		}
	}

	exceeding, err := s.snapshots.ListExceeding(ctx, date)
	if err != nil {
		return nil, err
	}

	return dto.NewAnalyticsResponseSlice(exceeding), nil
}

// recompute derives the snapshot from current-version records only, so two
// runs without intervening mutations produce identical output.
func (s *analyticsService) recompute(ctx context.Context, studentID uint, date time.Time) (models.AnalyticsSnapshot, error) {
	spanCtx, span := s.tracer.Start(ctx, "analytics.recompute", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.String("analysis.date", date.Format("2006-01-02")),
	))
	defer span.End()

	yearly, err := s.records.ListCurrentByStudentBetween(spanCtx, studentID, schoolYearStart(date), date)
	if err != nil {
		span.RecordError(err)
		return models.AnalyticsSnapshot{}, err
	}

	snapshot := buildSnapshot(studentID, date, yearly)
	snapshot.LastUpdated = s.now()

	if err := s.snapshots.Upsert(spanCtx, &snapshot); err != nil {
		span.RecordError(err)
		return models.AnalyticsSnapshot{}, err
	}

	observability.SnapshotRecomputes().Inc()

	if snapshot.RiskLevel == models.RiskCritical {
		s.notifier.CriticalCase(spanCtx, snapshot)
	}

	return snapshot, nil
}

// buildSnapshot is the pure derivation from a student's current-version
// records for the school year up to the analysis date.
func buildSnapshot(studentID uint, date time.Time, yearly []models.AttendanceRecord) models.AnalyticsSnapshot {
	windowStart := date.AddDate(0, 0, -29)

	var absences, late int
	var windowTotal, windowAttended int
	weekdayAbsences := map[time.Weekday]int{}

	for _, record := range yearly {
		code := record.Status.Code

		switch code {
		case models.StatusAbsent:
			absences++
			weekdayAbsences[record.Session.Date.Weekday()]++
		case models.StatusLate:
			late++
		}

		if !record.Session.Date.Before(windowStart) {
			windowTotal++
			if code == models.StatusPresent || code == models.StatusLate {
				windowAttended++
			}
		}
	}

	rate := 100.0
	if windowTotal > 0 {
		rate = float64(windowAttended) / float64(windowTotal) * 100
	}

	flags := datatypes.JSONMap{}
	if weekday, count, clustered := dominantWeekday(weekdayAbsences); clustered {
		flags["weekday_clustering"] = true
		flags["weekday"] = weekday.String()
		flags["count"] = count
	}

	return models.AnalyticsSnapshot{
		StudentID:           studentID,
		AnalysisDate:        date,
		YearlyAbsences:      absences,
		LateCount:           late,
		AttendanceRate30d:   rate,
		RiskLevel:           riskLevel(absences, rate),
		ExceedsAbsenceLimit: absences >= models.YearlyAbsenceLimit,
		PatternFlags:        flags,
		Stale:               false,
	}
}

func riskLevel(yearlyAbsences int, rate30d float64) models.RiskLevel {
	switch {
	case yearlyAbsences >= models.YearlyAbsenceLimit || rate30d < 80:
		return models.RiskCritical
	case yearlyAbsences >= 10 || rate30d < 85:
		return models.RiskHigh
	case yearlyAbsences >= 5 || rate30d < 90:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func dominantWeekday(counts map[time.Weekday]int) (time.Weekday, int, bool) {
	var best time.Weekday
	bestCount := 0
	for weekday, count := range counts {
		if count > bestCount || (count == bestCount && weekday < best) {
			best = weekday
			bestCount = count
		}
	}

	return best, bestCount, bestCount >= weekdayClusterThreshold
}

// schoolYearStart returns June 1 of the school year containing the date.
func schoolYearStart(date time.Time) time.Time {
	year := date.Year()
	if date.Month() < time.June {
		year--
	}
	return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func snapshotCacheKey(studentID uint) string {
	return fmt.Sprintf("analytics:student:%d", studentID)
}

func (s *analyticsService) cachedResponse(ctx context.Context, studentID uint, date time.Time) (dto.AnalyticsResponse, bool) {
	if s.cache == nil {
		return dto.AnalyticsResponse{}, false
	}

	cached, err := s.cache.Get(ctx, snapshotCacheKey(studentID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
		}
		return dto.AnalyticsResponse{}, false
	}

	var response dto.AnalyticsResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		return dto.AnalyticsResponse{}, false
	}

	if response.AnalysisDate != date.Format("2006-01-02") {
		return dto.AnalyticsResponse{}, false
	}

	s.logger.Debug().Uint("student_id", studentID).Msg("analytics cache hit")
	return response, true
}

func (s *analyticsService) storeResponse(ctx context.Context, studentID uint, response dto.AnalyticsResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, snapshotCacheKey(studentID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store analytics cache entry")
	}
}

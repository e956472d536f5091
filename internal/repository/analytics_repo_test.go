package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

func TestAnalyticsRepositoryUpsertReplacesSameDaySnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	first := models.AnalyticsSnapshot{
		StudentID:         100,
		AnalysisDate:      date,
		YearlyAbsences:    4,
		AttendanceRate30d: 92.5,
		RiskLevel:         models.RiskLow,
		LastUpdated:       date.Add(8 * time.Hour),
	}
	require.NoError(t, repo.Upsert(ctx, &first))

	second := models.AnalyticsSnapshot{
		StudentID:         100,
		AnalysisDate:      date,
		YearlyAbsences:    5,
		AttendanceRate30d: 89.0,
		RiskLevel:         models.RiskMedium,
		LastUpdated:       date.Add(9 * time.Hour),
	}
	require.NoError(t, repo.Upsert(ctx, &second))

	var count int64
	require.NoError(t, db.Model(&models.AnalyticsSnapshot{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	stored, err := repo.Get(ctx, 100, date)
	require.NoError(t, err)
	require.Equal(t, 5, stored.YearlyAbsences)
	require.Equal(t, models.RiskMedium, stored.RiskLevel)
	require.InDelta(t, 89.0, stored.AttendanceRate30d, 0.001)
}

func TestAnalyticsRepositoryStaleTracking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 100, AnalysisDate: date, LastUpdated: date}))
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 200, AnalysisDate: date, LastUpdated: date}))

	require.NoError(t, repo.MarkStale(ctx, 100))

	ids, err := repo.ListStudentIDsNeedingRefresh(ctx, date)
	require.NoError(t, err)
	require.Equal(t, []uint{100}, ids)

	stored, err := repo.Get(ctx, 100, date)
	require.NoError(t, err)
	require.True(t, stored.Stale)
}

func TestAnalyticsRepositoryRefreshIncludesOutdatedExceedingSnapshots(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	yesterday := time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)
	today := yesterday.AddDate(0, 0, 1)

	// Exceeding snapshot from yesterday, never invalidated.
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 100, AnalysisDate: yesterday, YearlyAbsences: 19, ExceedsAbsenceLimit: true, RiskLevel: models.RiskCritical, LastUpdated: yesterday}))
	// Non-exceeding snapshot from yesterday stays out of scope.
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 200, AnalysisDate: yesterday, YearlyAbsences: 2, LastUpdated: yesterday}))
	// Already refreshed today; no work left for this student.
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 300, AnalysisDate: yesterday, YearlyAbsences: 18, ExceedsAbsenceLimit: true, RiskLevel: models.RiskCritical, LastUpdated: yesterday}))
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 300, AnalysisDate: today, YearlyAbsences: 18, ExceedsAbsenceLimit: true, RiskLevel: models.RiskCritical, LastUpdated: today}))

	ids, err := repo.ListStudentIDsNeedingRefresh(ctx, today)
	require.NoError(t, err)
	require.Equal(t, []uint{100}, ids)
}

func TestAnalyticsRepositoryListExceedingSkipsStaleRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 100, AnalysisDate: date, YearlyAbsences: 19, ExceedsAbsenceLimit: true, RiskLevel: models.RiskCritical, LastUpdated: date}))
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 200, AnalysisDate: date, YearlyAbsences: 21, ExceedsAbsenceLimit: true, RiskLevel: models.RiskCritical, LastUpdated: date}))
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{StudentID: 300, AnalysisDate: date, YearlyAbsences: 2, LastUpdated: date}))
	require.NoError(t, repo.MarkStale(ctx, 100))

	exceeding, err := repo.ListExceeding(ctx, date)
	require.NoError(t, err)
	require.Len(t, exceeding, 1)
	require.Equal(t, uint(200), exceeding[0].StudentID)
}

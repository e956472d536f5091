package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
)

type analyticsServiceStub struct {
	snapshotFn func(ctx context.Context, studentID uint, asOf time.Time) (dto.AnalyticsResponse, error)
	criticalFn func(ctx context.Context, asOf time.Time) ([]dto.AnalyticsResponse, error)
}

func (s *analyticsServiceStub) Invalidate(context.Context, uint) error {
	return nil
}

func (s *analyticsServiceStub) Snapshot(ctx context.Context, studentID uint, asOf time.Time) (dto.AnalyticsResponse, error) {
	return s.snapshotFn(ctx, studentID, asOf)
}

func (s *analyticsServiceStub) CriticalCases(ctx context.Context, asOf time.Time) ([]dto.AnalyticsResponse, error) {
	return s.criticalFn(ctx, asOf)
}

func TestAnalyticsHandlerStudentSnapshot(t *testing.T) {
	stub := &analyticsServiceStub{
		snapshotFn: func(_ context.Context, studentID uint, _ time.Time) (dto.AnalyticsResponse, error) {
			require.Equal(t, uint(100), studentID)
			return dto.AnalyticsResponse{
				StudentID:      studentID,
				YearlyAbsences: 12,
				RiskLevel:      models.RiskHigh,
			}, nil
		},
	}

	app := fiber.New()
	handler := NewAnalyticsHandler(stub, testLogger())
	handler.RegisterStudentRoutes(app.Group("/students"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/students/100/analytics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var snapshot dto.AnalyticsResponse
	success, _ := decodeEnvelope(t, resp, &snapshot)
	require.True(t, success)
	require.Equal(t, 12, snapshot.YearlyAbsences)
	require.Equal(t, models.RiskHigh, snapshot.RiskLevel)
}

func TestAnalyticsHandlerCriticalCases(t *testing.T) {
	stub := &analyticsServiceStub{
		criticalFn: func(_ context.Context, _ time.Time) ([]dto.AnalyticsResponse, error) {
			return []dto.AnalyticsResponse{
				{StudentID: 100, YearlyAbsences: 21, RiskLevel: models.RiskCritical, ExceedsAbsenceLimit: true},
				{StudentID: 200, YearlyAbsences: 19, RiskLevel: models.RiskCritical, ExceedsAbsenceLimit: true},
			}, nil
		},
	}

	app := fiber.New()
	handler := NewAnalyticsHandler(stub, testLogger())
	handler.RegisterAnalyticsRoutes(app.Group("/analytics"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/analytics/critical", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cases []dto.AnalyticsResponse
	success, _ := decodeEnvelope(t, resp, &cases)
	require.True(t, success)
	require.Len(t, cases, 2)
	require.Equal(t, uint(100), cases[0].StudentID)
}

func TestAnalyticsHandlerRejectsBadStudentID(t *testing.T) {
	app := fiber.New()
	handler := NewAnalyticsHandler(&analyticsServiceStub{}, testLogger())
	handler.RegisterStudentRoutes(app.Group("/students"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/students/0/analytics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

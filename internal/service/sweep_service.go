package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/observability"
	"github.com/noah-isme/attendance-api/internal/repository"
)

// SweepService closes attendance sessions whose scheduled window elapsed
// without an explicit completion, marking every unrecorded enrolled student
// absent first. The sweep is idempotent: the one-current-record-per-
// (session, student) constraint makes a second pass a no-op.
type SweepService interface {
	AutoCompleteExpired(ctx context.Context, now time.Time) ([]dto.SessionResponse, error)
	Run(ctx context.Context, interval time.Duration)
}

type sweepService struct {
	sessions    repository.SessionRepository
	records     repository.RecordRepository
	statuses    repository.StatusRepository
	enrollments repository.EnrollmentRepository
	analytics   AnalyticsInvalidator
	notifier    Notifier
	logger      zerolog.Logger
}

// NewSweepService constructs a SweepService instance.
func NewSweepService(
	sessions repository.SessionRepository,
	records repository.RecordRepository,
	statuses repository.StatusRepository,
	enrollments repository.EnrollmentRepository,
	analytics AnalyticsInvalidator,
	notifier Notifier,
	logger zerolog.Logger,
) SweepService {
	return &sweepService{
		sessions:    sessions,
		records:     records,
		statuses:    statuses,
		enrollments: enrollments,
		analytics:   analytics,
		notifier:    notifier,
		logger:      logger.With().Str("component", "sweep_service").Logger(),
	}
}

// Run drives the sweep on a fixed cadence until the context is cancelled.
func (s *sweepService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("session expiry sweep started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("session expiry sweep stopped")
			return
		case now := <-ticker.C:
			if _, err := s.AutoCompleteExpired(ctx, now); err != nil {
				s.logger.Error().Err(err).Msg("session expiry sweep failed")
			}
		}
	}
}

func (s *sweepService) AutoCompleteExpired(ctx context.Context, now time.Time) ([]dto.SessionResponse, error) {
	expired, err := s.sessions.ListExpiredActive(ctx, now)
	if err != nil {
		return nil, err
	}

	completed := make([]dto.SessionResponse, 0, len(expired))
	for _, session := range expired {
		// One bad section must never block the sweep for the others.
		swept, sweepErr := s.sweepOne(ctx, session, now)
		if sweepErr != nil {
			s.logger.Error().Err(sweepErr).
				Uint("session_id", session.ID).
				Uint("section_id", session.SectionID).
				Msg("skipping session the sweep could not auto-complete")
			continue
		}
		completed = append(completed, swept)
	}

	return completed, nil
}

func (s *sweepService) sweepOne(ctx context.Context, session models.Session, now time.Time) (dto.SessionResponse, error) {
	absent, err := s.statuses.GetByCode(ctx, models.StatusAbsent)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	enrolled, err := s.enrollments.ListStudentIDs(ctx, session.SectionID, session.Date)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	// Marks made before an edit live under superseded session ids; missing
	// them here would double-mark those students absent.
	chainIDs, err := chainSessionIDs(ctx, s.sessions, session)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	existing, err := s.records.ListCurrentBySessions(ctx, chainIDs)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	marked := make(map[uint]struct{}, len(existing))
	for _, record := range existing {
		marked[record.StudentID] = struct{}{}
	}

	autoMarked := 0
	for _, studentID := range enrolled {
		if _, ok := marked[studentID]; ok {
			continue
		}

		record := models.AttendanceRecord{
			SessionID:        session.ID,
			StudentID:        studentID,
			StatusID:         absent.ID,
			MarkedAt:         now,
			MarkedBy:         session.TeacherID,
			MarkingMethod:    models.MarkingAuto,
			Version:          1,
			IsCurrentVersion: true,
		}

		audit := models.AuditEntry{
			EntityType: models.AuditEntityRecord,
			Action:     models.AuditActionCreate,
			ActorID:    session.TeacherID,
			NewValues: datatypes.JSONMap{
				"session_id":     session.ID,
				"student_id":     studentID,
				"status":         string(models.StatusAbsent),
				"marking_method": string(models.MarkingAuto),
			},
			Reason: "scheduled window elapsed without a mark",
		}

		if err := s.records.CreateWithAudit(ctx, &record, &audit); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// A manual mark won the race for this student; nothing to do.
				continue
			}
			return dto.SessionResponse{}, err
		}

		observability.MarksRecorded().WithLabelValues(string(models.MarkingAuto)).Inc()
		autoMarked++

		if err := s.analytics.Invalidate(ctx, studentID); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate analytics")
		}
	}

	session.State = models.SessionCompleted
	session.ActualEnd = &now

	audit := models.AuditEntry{
		EntityType: models.AuditEntitySession,
		Action:     models.AuditActionComplete,
		ActorID:    session.TeacherID,
		OldValues:  datatypes.JSONMap{"state": string(models.SessionActive)},
		NewValues:  datatypes.JSONMap{"state": string(models.SessionCompleted), "auto_marked": autoMarked},
		Reason:     "auto-completed by expiry sweep",
	}

	if err := s.sessions.UpdateWithAudit(ctx, &session, &audit); err != nil {
		return dto.SessionResponse{}, err
	}

	observability.SessionsAutoCompleted().Inc()
	s.notifier.SessionAutoCompleted(ctx, session, autoMarked)

	s.logger.Info().
		Uint("session_id", session.ID).
		Int("auto_marked", autoMarked).
		Msg("session auto-completed")

	return dto.NewSessionResponse(session), nil
}

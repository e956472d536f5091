package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/observability"
	"github.com/noah-isme/attendance-api/internal/repository"
)

// RecordService owns the per-student attendance record lifecycle. Records form
// append-only version chains; the only write paths are Mark and Correct, so
// every data repair goes through the audit trail.
type RecordService interface {
	Mark(ctx context.Context, sessionID uint, payload dto.RecordMarkRequest, actor Actor) (dto.RecordResponse, error)
	Correct(ctx context.Context, recordID uint, payload dto.RecordCorrectRequest, actor Actor) (dto.RecordResponse, error)
	CurrentForSession(ctx context.Context, sessionID uint) ([]dto.RecordResponse, error)
	History(ctx context.Context, recordID uint) (dto.RecordHistoryResponse, error)
}

type recordService struct {
	records     repository.RecordRepository
	sessions    repository.SessionRepository
	statuses    repository.StatusRepository
	enrollments repository.EnrollmentRepository
	audits      repository.AuditRepository
	analytics   AnalyticsInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRecordService constructs a RecordService instance.
func NewRecordService(
	records repository.RecordRepository,
	sessions repository.SessionRepository,
	statuses repository.StatusRepository,
	enrollments repository.EnrollmentRepository,
	audits repository.AuditRepository,
	analytics AnalyticsInvalidator,
	validate *validator.Validate,
	logger zerolog.Logger,
) RecordService {
	return &recordService{
		records:     records,
		sessions:    sessions,
		statuses:    statuses,
		enrollments: enrollments,
		audits:      audits,
		analytics:   analytics,
		validator:   validate,
		logger:      logger.With().Str("component", "record_service").Logger(),
		now:         time.Now,
	}
}

func (s *recordService) Mark(ctx context.Context, sessionID uint, payload dto.RecordMarkRequest, actor Actor) (dto.RecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RecordResponse{}, err
	}

	// A client may still hold a superseded session id after an edit; the mark
	// targets the occasion, so resolve the chain's current version first.
	session, err := s.sessions.CurrentByChainOf(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordResponse{}, ErrSessionNotFound
		}
		return dto.RecordResponse{}, err
	}

	if !session.IsActive() {
		return dto.RecordResponse{}, ErrSessionNotActive
	}

	now := s.now()
	if session.Date.After(endOfDay(now)) {
		return dto.RecordResponse{}, ErrFutureDateRejected
	}

	status, err := s.statuses.GetByID(ctx, payload.StatusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordResponse{}, ErrStatusUnknown
		}
		return dto.RecordResponse{}, err
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, payload.StudentID, session.SectionID, session.Date)
	if err != nil {
		return dto.RecordResponse{}, err
	}
	if !enrolled {
		return dto.RecordResponse{}, ErrEnrollmentMismatch
	}

	chainIDs, err := chainSessionIDs(ctx, s.sessions, session)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	// One record per occasion: a record marked before an edit stays attached
	// to the superseded session id, so the duplicate check spans the chain.
	if _, err := s.records.CurrentByStudentInSessions(ctx, chainIDs, payload.StudentID); err == nil {
		return dto.RecordResponse{}, ErrDuplicateRecord
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RecordResponse{}, err
	}

	record := models.AttendanceRecord{
		SessionID:        session.ID,
		StudentID:        payload.StudentID,
		StatusID:         status.ID,
		MarkedAt:         now,
		MarkedBy:         actor.ID,
		Remarks:          payload.Remarks,
		MarkingMethod:    models.MarkingManual,
		Version:          1,
		IsCurrentVersion: true,
	}

	audit := models.AuditEntry{
		EntityType: models.AuditEntityRecord,
		Action:     models.AuditActionCreate,
		ActorID:    actor.ID,
		NewValues: datatypes.JSONMap{
			"session_id": session.ID,
			"student_id": payload.StudentID,
			"status":     string(status.Code),
		},
	}

	if err := s.records.CreateWithAudit(ctx, &record, &audit); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the uniqueness race; the caller must correct instead.
			return dto.RecordResponse{}, ErrDuplicateRecord
		}
		return dto.RecordResponse{}, err
	}

	record.Status = status
	observability.MarksRecorded().WithLabelValues(string(models.MarkingManual)).Inc()

	if err := s.analytics.Invalidate(ctx, record.StudentID); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", record.StudentID).Msg("failed to invalidate analytics")
	}

	s.logger.Info().
		Uint("record_id", record.ID).
		Uint("session_id", session.ID).
		Uint("student_id", record.StudentID).
		Str("status", string(status.Code)).
		Msg("attendance marked")

	return dto.NewRecordResponse(record), nil
}

func (s *recordService) Correct(ctx context.Context, recordID uint, payload dto.RecordCorrectRequest, actor Actor) (dto.RecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RecordResponse{}, err
	}

	if payload.Reason == "" && !actor.MayOmitReason() {
		return dto.RecordResponse{}, ErrReasonRequired
	}

	prior, err := s.records.CurrentByChainOf(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordResponse{}, ErrRecordNotFound
		}
		return dto.RecordResponse{}, err
	}

	status, err := s.statuses.GetByID(ctx, payload.StatusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordResponse{}, ErrStatusUnknown
		}
		return dto.RecordResponse{}, err
	}

	root := prior.ChainRootID()
	next := models.AttendanceRecord{
		SessionID:        prior.SessionID,
		StudentID:        prior.StudentID,
		StatusID:         status.ID,
		MarkedAt:         s.now(),
		MarkedBy:         actor.ID,
		Remarks:          prior.Remarks,
		MarkingMethod:    models.MarkingManual,
		Version:          prior.Version + 1,
		OriginalRecordID: &root,
		IsCurrentVersion: true,
	}

	audit := models.AuditEntry{
		EntityType: models.AuditEntityRecord,
		Action:     models.AuditActionUpdate,
		ActorID:    actor.ID,
		OldValues:  datatypes.JSONMap{"status": string(prior.Status.Code), "version": prior.Version},
		NewValues:  datatypes.JSONMap{"status": string(status.Code), "version": next.Version},
		Reason:     payload.Reason,
	}

	if err := s.records.SupersedeWithAudit(ctx, &prior, &next, &audit); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The targeted version lost currency to a concurrent correction;
			// the caller must re-read and retry against the new current row.
			return dto.RecordResponse{}, ErrRecordNotFound
		}
		return dto.RecordResponse{}, err
	}

	next.Status = status

	if err := s.analytics.Invalidate(ctx, next.StudentID); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", next.StudentID).Msg("failed to invalidate analytics")
	}

	s.logger.Info().
		Uint("record_id", next.ID).
		Uint("prior_id", prior.ID).
		Int("version", next.Version).
		Str("status", string(status.Code)).
		Msg("attendance corrected")

	return dto.NewRecordResponse(next), nil
}

func (s *recordService) CurrentForSession(ctx context.Context, sessionID uint) ([]dto.RecordResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	chainIDs, err := chainSessionIDs(ctx, s.sessions, session)
	if err != nil {
		return nil, err
	}

	records, err := s.records.ListCurrentBySessions(ctx, chainIDs)
	if err != nil {
		return nil, err
	}

	return dto.NewRecordResponseSlice(records), nil
}

func (s *recordService) History(ctx context.Context, recordID uint) (dto.RecordHistoryResponse, error) {
	reference, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordHistoryResponse{}, ErrRecordNotFound
		}
		return dto.RecordHistoryResponse{}, err
	}

	versions, err := s.records.ListVersions(ctx, reference.ChainRootID())
	if err != nil {
		return dto.RecordHistoryResponse{}, err
	}

	ids := make([]uint, 0, len(versions))
	for _, version := range versions {
		ids = append(ids, version.ID)
	}

	entries, err := s.audits.HistoryForEntities(ctx, models.AuditEntityRecord, ids)
	if err != nil {
		return dto.RecordHistoryResponse{}, err
	}

	return dto.RecordHistoryResponse{
		Versions: dto.NewRecordResponseSlice(versions),
		Audit:    dto.NewAuditEntryResponseSlice(entries),
	}, nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

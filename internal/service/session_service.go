package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/repository"
)

// SessionService owns the attendance session lifecycle.
type SessionService interface {
	Open(ctx context.Context, payload dto.SessionOpenRequest, actor Actor) (dto.SessionResponse, error)
	Get(ctx context.Context, id uint) (dto.SessionResponse, error)
	Complete(ctx context.Context, id uint, actor Actor) (dto.SessionResponse, error)
	Cancel(ctx context.Context, id uint, payload dto.SessionCancelRequest, actor Actor) (dto.SessionResponse, error)
	Edit(ctx context.Context, id uint, payload dto.SessionEditRequest, actor Actor) (dto.SessionResponse, error)
}

type sessionService struct {
	sessions  repository.SessionRepository
	records   repository.RecordRepository
	schedules repository.ScheduleRepository
	analytics AnalyticsInvalidator
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	sessions repository.SessionRepository,
	records repository.RecordRepository,
	schedules repository.ScheduleRepository,
	analytics AnalyticsInvalidator,
	validate *validator.Validate,
	logger zerolog.Logger,
) SessionService {
	return &sessionService{
		sessions:  sessions,
		records:   records,
		schedules: schedules,
		analytics: analytics,
		validator: validate,
		logger:    logger.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

func (s *sessionService) Open(ctx context.Context, payload dto.SessionOpenRequest, actor Actor) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	date, err := time.ParseInLocation("2006-01-02", payload.Date, time.UTC)
	if err != nil {
		return dto.SessionResponse{}, fmt.Errorf("invalid session date: %w", err)
	}

	start, end, err := s.resolveWindow(ctx, payload, date)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	now := s.now()
	session := models.Session{
		TeacherID:        payload.TeacherID,
		SectionID:        payload.SectionID,
		SubjectID:        payload.SubjectID,
		Date:             date,
		State:            models.SessionActive,
		ScheduledStart:   start,
		ScheduledEnd:     end,
		ActualStart:      &now,
		Version:          1,
		IsCurrentVersion: true,
	}

	audit := models.AuditEntry{
		EntityType: models.AuditEntitySession,
		Action:     models.AuditActionCreate,
		ActorID:    actor.ID,
		NewValues: datatypes.JSONMap{
			"teacher_id": payload.TeacherID,
			"section_id": payload.SectionID,
			"subject_id": payload.SubjectID,
			"date":       payload.Date,
			"state":      string(models.SessionActive),
		},
	}

	if err := s.sessions.CreateWithAudit(ctx, &session, &audit); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Losing the uniqueness race still tells the caller which session
			// won, so a retry can read instead of reopening.
			if existing, findErr := s.sessions.FindActive(ctx, payload.TeacherID, payload.SectionID, payload.SubjectID, date); findErr == nil {
				return dto.NewSessionResponse(existing), ErrDuplicateActiveSession
			}
			return dto.SessionResponse{}, ErrDuplicateActiveSession
		}
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", session.ID).
		Uint("teacher_id", session.TeacherID).
		Uint("section_id", session.SectionID).
		Msg("session opened")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) resolveWindow(ctx context.Context, payload dto.SessionOpenRequest, date time.Time) (time.Time, time.Time, error) {
	if payload.ScheduledStart != nil || payload.ScheduledEnd != nil {
		if payload.ScheduledStart == nil || payload.ScheduledEnd == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("scheduled_start and scheduled_end must be provided together")
		}
		slot := models.ScheduleSlot{StartTime: *payload.ScheduledStart, EndTime: *payload.ScheduledEnd}
		return slot.WindowOn(date)
	}

	slot, err := s.schedules.Slot(ctx, payload.TeacherID, payload.SectionID, payload.SubjectID, int(date.Weekday()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, time.Time{}, fmt.Errorf("no scheduled window for this teacher, section and weekday; provide scheduled_start and scheduled_end")
		}
		return time.Time{}, time.Time{}, err
	}

	return slot.WindowOn(date)
}

func (s *sessionService) Get(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Complete(ctx context.Context, id uint, actor Actor) (dto.SessionResponse, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	if !session.IsCurrentVersion || !session.IsActive() {
		return dto.SessionResponse{}, ErrInvalidTransition
	}

	now := s.now()
	session.State = models.SessionCompleted
	session.ActualEnd = &now

	audit := models.AuditEntry{
		EntityType: models.AuditEntitySession,
		Action:     models.AuditActionComplete,
		ActorID:    actor.ID,
		OldValues:  datatypes.JSONMap{"state": string(models.SessionActive)},
		NewValues:  datatypes.JSONMap{"state": string(models.SessionCompleted), "actual_end": now},
	}

	if err := s.sessions.UpdateWithAudit(ctx, &session, &audit); err != nil {
		return dto.SessionResponse{}, err
	}

	s.invalidateSessionStudents(ctx, session)

	s.logger.Info().Uint("session_id", session.ID).Msg("session completed")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Cancel(ctx context.Context, id uint, payload dto.SessionCancelRequest, actor Actor) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	if !session.IsCurrentVersion || !session.IsActive() {
		return dto.SessionResponse{}, ErrInvalidTransition
	}

	session.State = models.SessionCancelled

	audit := models.AuditEntry{
		EntityType: models.AuditEntitySession,
		Action:     models.AuditActionUpdate,
		ActorID:    actor.ID,
		OldValues:  datatypes.JSONMap{"state": string(models.SessionActive)},
		NewValues:  datatypes.JSONMap{"state": string(models.SessionCancelled)},
		Reason:     payload.Reason,
	}

	if err := s.sessions.UpdateWithAudit(ctx, &session, &audit); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Uint("session_id", session.ID).Msg("session cancelled")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Edit(ctx context.Context, id uint, payload dto.SessionEditRequest, actor Actor) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	if payload.Reason == "" && !actor.MayOmitReason() {
		return dto.SessionResponse{}, ErrReasonRequired
	}

	parent, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	if !parent.IsCurrentVersion {
		return dto.SessionResponse{}, ErrInvalidTransition
	}

	next := parent
	next.ID = 0
	next.Version = parent.Version + 1
	root := parent.ChainRootID()
	next.OriginalSessionID = &root
	next.IsCurrentVersion = true
	next.CreatedAt = time.Time{}
	next.UpdatedAt = time.Time{}

	oldValues := datatypes.JSONMap{}
	newValues := datatypes.JSONMap{}

	if payload.SubjectID != nil {
		oldValues["subject_id"] = parent.SubjectID
		newValues["subject_id"] = *payload.SubjectID
		next.SubjectID = payload.SubjectID
	}

	if payload.ScheduledStart != nil {
		start, combineErr := combineDateClock(parent.Date, *payload.ScheduledStart)
		if combineErr != nil {
			return dto.SessionResponse{}, fmt.Errorf("invalid scheduled start: %w", combineErr)
		}
		oldValues["scheduled_start"] = parent.ScheduledStart
		newValues["scheduled_start"] = start
		next.ScheduledStart = start
	}

	if payload.ScheduledEnd != nil {
		end, combineErr := combineDateClock(parent.Date, *payload.ScheduledEnd)
		if combineErr != nil {
			return dto.SessionResponse{}, fmt.Errorf("invalid scheduled end: %w", combineErr)
		}
		oldValues["scheduled_end"] = parent.ScheduledEnd
		newValues["scheduled_end"] = end
		next.ScheduledEnd = end
	}

	if next.ScheduledEnd.Before(next.ScheduledStart) {
		return dto.SessionResponse{}, fmt.Errorf("scheduled end must not precede scheduled start")
	}

	if len(newValues) == 0 {
		return dto.SessionResponse{}, fmt.Errorf("no changes supplied")
	}

	audit := models.AuditEntry{
		EntityType: models.AuditEntitySession,
		Action:     models.AuditActionEdit,
		ActorID:    actor.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Reason:     payload.Reason,
	}

	if err := s.sessions.SupersedeWithAudit(ctx, &parent, &next, &audit); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Lost the race against a concurrent edit of the same version.
			return dto.SessionResponse{}, ErrInvalidTransition
		}
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", next.ID).
		Uint("parent_id", parent.ID).
		Int("version", next.Version).
		Msg("session edited")

	return dto.NewSessionResponse(next), nil
}

func combineDateClock(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, date.Location()), nil
}

func (s *sessionService) invalidateSessionStudents(ctx context.Context, session models.Session) {
	chainIDs, err := chainSessionIDs(ctx, s.sessions, session)
	if err != nil {
		s.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("failed to resolve session chain for analytics invalidation")
		return
	}

	records, err := s.records.ListCurrentBySessions(ctx, chainIDs)
	if err != nil {
		s.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("failed to list records for analytics invalidation")
		return
	}

	for _, record := range records {
		if err := s.analytics.Invalidate(ctx, record.StudentID); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", record.StudentID).Msg("failed to invalidate analytics")
		}
	}
}

// chainSessionIDs returns every session id in the occasion's version chain.
// Record queries span them all: a record marked before an edit stays attached
// to the superseded version's id.
func chainSessionIDs(ctx context.Context, sessions repository.SessionRepository, session models.Session) ([]uint, error) {
	chain, err := sessions.ListChain(ctx, session.ChainRootID())
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(chain))
	for _, member := range chain {
		ids = append(ids, member.ID)
	}

	return ids, nil
}

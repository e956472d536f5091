package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/repository"
)

// RosterService assembles the roster + analytics bundle served per
// (section, subject). The client cache layer fronts it.
type RosterService interface {
	BuildBundle(ctx context.Context, sectionID uint, subjectID *uint) (dto.RosterBundle, error)
}

type rosterService struct {
	enrollments repository.EnrollmentRepository
	analytics   AnalyticsService
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRosterService constructs a RosterService instance.
func NewRosterService(enrollments repository.EnrollmentRepository, analytics AnalyticsService, logger zerolog.Logger) RosterService {
	return &rosterService{
		enrollments: enrollments,
		analytics:   analytics,
		logger:      logger.With().Str("component", "roster_service").Logger(),
		now:         time.Now,
	}
}

func (s *rosterService) BuildBundle(ctx context.Context, sectionID uint, subjectID *uint) (dto.RosterBundle, error) {
	now := s.now()

	roster, err := s.enrollments.Roster(ctx, sectionID, now)
	if err != nil {
		return dto.RosterBundle{}, err
	}

	students := make([]dto.RosterStudent, 0, len(roster))
	for _, student := range roster {
		entry := dto.RosterStudent{ID: student.ID, Name: student.Name}

		snapshot, err := s.analytics.Snapshot(ctx, student.ID, now)
		if err != nil {
			// A missing snapshot must not sink the whole bundle.
			s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to derive snapshot for roster bundle")
		} else {
			entry.Analytics = &snapshot
		}

		students = append(students, entry)
	}

	return dto.RosterBundle{
		SectionID: sectionID,
		SubjectID: subjectID,
		AsOf:      now.Format("2006-01-02"),
		Students:  students,
		LoadedAt:  now,
	}, nil
}

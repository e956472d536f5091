package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/database"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// testEnv wires real sqlite-backed repositories so service tests exercise the
// same constraints and transactions as production.
type testEnv struct {
	db          *gorm.DB
	sessions    repository.SessionRepository
	records     repository.RecordRepository
	statuses    repository.StatusRepository
	enrollments repository.EnrollmentRepository
	schedules   repository.ScheduleRepository
	audits      repository.AuditRepository
	snapshots   repository.AnalyticsRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return &testEnv{
		db:          db,
		sessions:    repository.NewSessionRepository(db),
		records:     repository.NewRecordRepository(db),
		statuses:    repository.NewStatusRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		schedules:   repository.NewScheduleRepository(db),
		audits:      repository.NewAuditRepository(db),
		snapshots:   repository.NewAnalyticsRepository(db),
	}
}

func (e *testEnv) enrollStudent(t *testing.T, name, email string, sectionID uint, from time.Time) models.Student {
	t.Helper()

	student := models.Student{Name: name, Email: email}
	require.NoError(t, e.db.Create(&student).Error)
	require.NoError(t, e.db.Create(&models.Enrollment{StudentID: student.ID, SectionID: sectionID, StartDate: from}).Error)
	return student
}

func (e *testEnv) createSession(t *testing.T, teacherID, sectionID uint, subjectID *uint, date time.Time) models.Session {
	t.Helper()

	session := models.Session{
		TeacherID:        teacherID,
		SectionID:        sectionID,
		SubjectID:        subjectID,
		Date:             date,
		State:            models.SessionActive,
		ScheduledStart:   date.Add(8 * time.Hour),
		ScheduledEnd:     date.Add(9 * time.Hour),
		Version:          1,
		IsCurrentVersion: true,
	}
	require.NoError(t, e.db.Create(&session).Error)
	return session
}

func (e *testEnv) statusID(t *testing.T, code models.StatusCode) uint {
	t.Helper()

	var status models.AttendanceStatus
	require.NoError(t, e.db.Where("code = ?", code).First(&status).Error)
	return status.ID
}

// stubInvalidator records invalidated student ids without any backing store.
type stubInvalidator struct {
	invalidated []uint
}

func (s *stubInvalidator) Invalidate(_ context.Context, studentID uint) error {
	s.invalidated = append(s.invalidated, studentID)
	return nil
}

// stubNotifier captures outbound events.
type stubNotifier struct {
	autoCompleted []uint
	critical      []uint
}

func (s *stubNotifier) SessionAutoCompleted(_ context.Context, session models.Session, _ int) {
	s.autoCompleted = append(s.autoCompleted, session.ID)
}

func (s *stubNotifier) CriticalCase(_ context.Context, snapshot models.AnalyticsSnapshot) {
	s.critical = append(s.critical, snapshot.StudentID)
}

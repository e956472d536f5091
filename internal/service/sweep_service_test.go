package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

func newSweepServiceForTest(t *testing.T) (*testEnv, *stubInvalidator, *stubNotifier, SweepService) {
	t.Helper()
	env := newTestEnv(t)
	invalidator := &stubInvalidator{}
	notifier := &stubNotifier{}
	svc := NewSweepService(env.sessions, env.records, env.statuses, env.enrollments, invalidator, notifier, testLogger())
	return env, invalidator, notifier, svc
}

func TestSweepMarksUnrecordedStudentsAbsentAndCompletes(t *testing.T) {
	env, invalidator, notifier, svc := newSweepServiceForTest(t)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	termStart := date.AddDate(0, -6, 0)
	session := env.createSession(t, 1, 10, nil, date)

	present := env.statusID(t, models.StatusPresent)

	var enrolled []models.Student
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		enrolled = append(enrolled, env.enrollStudent(t, email, email, 10, termStart))
	}

	// Two of four already marked by the teacher.
	for _, student := range enrolled[:2] {
		require.NoError(t, env.db.Create(&models.AttendanceRecord{
			SessionID: session.ID, StudentID: student.ID, StatusID: present,
			MarkedAt: date.Add(8 * time.Hour), MarkedBy: 1,
			MarkingMethod: models.MarkingManual, Version: 1, IsCurrentVersion: true,
		}).Error)
	}

	now := date.Add(10 * time.Hour)
	completed, err := svc.AutoCompleteExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, models.SessionCompleted, completed[0].State)

	records, err := env.records.ListCurrentBySessions(ctx, []uint{session.ID})
	require.NoError(t, err)
	require.Len(t, records, 4)

	autoCount := 0
	for _, record := range records {
		if record.MarkingMethod == models.MarkingAuto {
			autoCount++
			require.Equal(t, models.StatusAbsent, record.Status.Code)
			require.Equal(t, session.TeacherID, record.MarkedBy)
		}
	}
	require.Equal(t, 2, autoCount)

	// Only the auto-marked students needed invalidation.
	require.Len(t, invalidator.invalidated, 2)
	require.Equal(t, []uint{session.ID}, notifier.autoCompleted)

	// The auto marks carry audit entries.
	for _, record := range records {
		if record.MarkingMethod != models.MarkingAuto {
			continue
		}
		history, err := env.audits.History(ctx, models.AuditEntityRecord, record.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.Equal(t, models.AuditActionCreate, history[0].Action)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	env, _, notifier, svc := newSweepServiceForTest(t)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)
	env.enrollStudent(t, "Alice Johnson", "alice@example.com", 10, date.AddDate(0, -6, 0))

	now := date.Add(10 * time.Hour)

	completed, err := svc.AutoCompleteExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, completed, 1)

	// The session is no longer active, so a second pass finds nothing.
	completed, err = svc.AutoCompleteExpired(ctx, now)
	require.NoError(t, err)
	require.Empty(t, completed)

	records, err := env.records.ListCurrentBySessions(ctx, []uint{session.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, notifier.autoCompleted, 1)
}

func TestSweepCountsMarksMadeBeforeAnEdit(t *testing.T) {
	env, _, _, svc := newSweepServiceForTest(t)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	termStart := date.AddDate(0, -6, 0)
	parent := env.createSession(t, 1, 10, nil, date)

	alice := env.enrollStudent(t, "Alice Johnson", "alice@example.com", 10, termStart)
	bob := env.enrollStudent(t, "Bob Smith", "bob@example.com", 10, termStart)

	// Alice was marked present against the original version before the edit.
	require.NoError(t, env.db.Create(&models.AttendanceRecord{
		SessionID: parent.ID, StudentID: alice.ID, StatusID: env.statusID(t, models.StatusPresent),
		MarkedAt: date.Add(8 * time.Hour), MarkedBy: 1,
		MarkingMethod: models.MarkingManual, Version: 1, IsCurrentVersion: true,
	}).Error)

	next := parent
	next.ID = 0
	next.Version = 2
	root := parent.ID
	next.OriginalSessionID = &root
	require.NoError(t, env.sessions.SupersedeWithAudit(ctx, &parent, &next, &models.AuditEntry{
		EntityType: models.AuditEntitySession, Action: models.AuditActionEdit, ActorID: 1,
	}))

	completed, err := svc.AutoCompleteExpired(ctx, date.Add(10*time.Hour))
	require.NoError(t, err)
	require.Len(t, completed, 1)

	// Alice keeps her single manual record; only Bob is auto-marked absent.
	records, err := env.records.ListCurrentBySessions(ctx, []uint{parent.ID, next.ID})
	require.NoError(t, err)
	require.Len(t, records, 2)

	byStudent := map[uint]models.AttendanceRecord{}
	for _, record := range records {
		byStudent[record.StudentID] = record
	}
	require.Equal(t, models.MarkingManual, byStudent[alice.ID].MarkingMethod)
	require.Equal(t, models.StatusPresent, byStudent[alice.ID].Status.Code)
	require.Equal(t, models.MarkingAuto, byStudent[bob.ID].MarkingMethod)
	require.Equal(t, models.StatusAbsent, byStudent[bob.ID].Status.Code)
}

func TestSweepLeavesUnexpiredSessionsAlone(t *testing.T) {
	env, _, _, svc := newSweepServiceForTest(t)
	ctx := context.Background()

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)
	env.enrollStudent(t, "Alice Johnson", "alice@example.com", 10, date.AddDate(0, -6, 0))

	// Still inside the scheduled window.
	completed, err := svc.AutoCompleteExpired(ctx, date.Add(8*time.Hour+30*time.Minute))
	require.NoError(t, err)
	require.Empty(t, completed)

	stored, err := env.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, stored.State)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
)

func newSessionServiceForTest(t *testing.T) (*testEnv, SessionService) {
	t.Helper()
	env := newTestEnv(t)
	svc := NewSessionService(env.sessions, env.records, env.schedules, &stubInvalidator{}, testValidator(), testLogger())
	return env, svc
}

func TestSessionServiceOpenWithExplicitWindow(t *testing.T) {
	_, svc := newSessionServiceForTest(t)

	start := "08:00"
	end := "09:30"
	opened, err := svc.Open(context.Background(), dto.SessionOpenRequest{
		TeacherID:      1,
		SectionID:      10,
		Date:           "2026-03-09",
		ScheduledStart: &start,
		ScheduledEnd:   &end,
	}, Actor{ID: 1, Role: RoleTeacher})
	require.NoError(t, err)

	require.Equal(t, models.SessionActive, opened.State)
	require.Equal(t, "2026-03-09", opened.Date)
	require.Equal(t, 1, opened.Version)
	require.True(t, opened.IsCurrentVersion)
	require.NotNil(t, opened.ActualStart)
	require.Equal(t, 8, opened.ScheduledStart.Hour())
	require.Equal(t, 9, opened.ScheduledEnd.Hour())
	require.Equal(t, 30, opened.ScheduledEnd.Minute())
}

func TestSessionServiceOpenResolvesWindowFromSchedule(t *testing.T) {
	env, svc := newSessionServiceForTest(t)

	// 2026-03-09 is a Monday.
	require.NoError(t, env.db.Create(&models.ScheduleSlot{
		TeacherID: 1, SectionID: 10, Weekday: int(time.Monday),
		StartTime: "10:00", EndTime: "11:00",
	}).Error)

	opened, err := svc.Open(context.Background(), dto.SessionOpenRequest{
		TeacherID: 1,
		SectionID: 10,
		Date:      "2026-03-09",
	}, Actor{ID: 1, Role: RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, 10, opened.ScheduledStart.Hour())
	require.Equal(t, 11, opened.ScheduledEnd.Hour())
}

func TestSessionServiceOpenFailsWithoutWindowOrSchedule(t *testing.T) {
	_, svc := newSessionServiceForTest(t)

	_, err := svc.Open(context.Background(), dto.SessionOpenRequest{
		TeacherID: 1,
		SectionID: 10,
		Date:      "2026-03-09",
	}, Actor{ID: 1, Role: RoleTeacher})
	require.Error(t, err)

	start := "08:00"
	_, err = svc.Open(context.Background(), dto.SessionOpenRequest{
		TeacherID:      1,
		SectionID:      10,
		Date:           "2026-03-09",
		ScheduledStart: &start,
	}, Actor{ID: 1, Role: RoleTeacher})
	require.Error(t, err)
}

func TestSessionServiceOpenRejectsDuplicateActiveSlot(t *testing.T) {
	_, svc := newSessionServiceForTest(t)

	start := "08:00"
	end := "09:00"
	request := dto.SessionOpenRequest{
		TeacherID:      1,
		SectionID:      10,
		Date:           "2026-03-09",
		ScheduledStart: &start,
		ScheduledEnd:   &end,
	}

	opened, err := svc.Open(context.Background(), request, Actor{ID: 1, Role: RoleTeacher})
	require.NoError(t, err)

	// The conflict carries the session holding the slot, so losers read
	// instead of reopening.
	existing, err := svc.Open(context.Background(), request, Actor{ID: 1, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrDuplicateActiveSession)
	require.Equal(t, opened.ID, existing.ID)
	require.Equal(t, models.SessionActive, existing.State)
}

func TestSessionServiceOpenConcurrentOneWinner(t *testing.T) {
	env, svc := newSessionServiceForTest(t)

	// A single connection serializes the inserts at the pool, so both calls
	// run concurrently at the service layer and the unique index picks the
	// winner.
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	start := "08:00"
	end := "09:00"
	request := dto.SessionOpenRequest{
		TeacherID:      1,
		SectionID:      10,
		Date:           "2026-03-09",
		ScheduledStart: &start,
		ScheduledEnd:   &end,
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, openErr := svc.Open(context.Background(), request, Actor{ID: 1, Role: RoleTeacher})
			results <- openErr
		}()
	}
	wg.Wait()
	close(results)

	var wins, duplicates int
	for openErr := range results {
		switch {
		case openErr == nil:
			wins++
		case errors.Is(openErr, ErrDuplicateActiveSession):
			duplicates++
		default:
			t.Fatalf("unexpected open error: %v", openErr)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, duplicates)
}

func TestSessionServiceCompleteInvalidatesMarkedStudents(t *testing.T) {
	env := newTestEnv(t)
	invalidator := &stubInvalidator{}
	svc := NewSessionService(env.sessions, env.records, env.schedules, invalidator, testValidator(), testLogger())

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)

	present := env.statusID(t, models.StatusPresent)
	record := models.AttendanceRecord{
		SessionID: session.ID, StudentID: 100, StatusID: present,
		MarkedAt: date.Add(8 * time.Hour), MarkedBy: 1,
		MarkingMethod: models.MarkingManual, Version: 1, IsCurrentVersion: true,
	}
	require.NoError(t, env.db.Create(&record).Error)

	completed, err := svc.Complete(context.Background(), session.ID, Actor{ID: 1, Role: RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, completed.State)
	require.NotNil(t, completed.ActualEnd)
	require.Equal(t, []uint{100}, invalidator.invalidated)

	// Completion is not repeatable.
	_, err = svc.Complete(context.Background(), session.ID, Actor{ID: 1, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionServiceCancelRequiresActiveSession(t *testing.T) {
	env, svc := newSessionServiceForTest(t)

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)

	cancelled, err := svc.Cancel(context.Background(), session.ID, dto.SessionCancelRequest{Reason: "fire drill"}, Actor{ID: 1, Role: RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, models.SessionCancelled, cancelled.State)

	_, err = svc.Cancel(context.Background(), session.ID, dto.SessionCancelRequest{}, Actor{ID: 1, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Cancel(context.Background(), 9999, dto.SessionCancelRequest{}, Actor{ID: 1, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionServiceEditCreatesNewVersion(t *testing.T) {
	env, svc := newSessionServiceForTest(t)

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)

	newEnd := "10:30"
	edited, err := svc.Edit(context.Background(), session.ID, dto.SessionEditRequest{
		ScheduledEnd: &newEnd,
		Reason:       "class extended for exam review",
	}, Actor{ID: 1, Role: RoleTeacher})
	require.NoError(t, err)

	require.Equal(t, 2, edited.Version)
	require.NotNil(t, edited.OriginalSessionID)
	require.Equal(t, session.ID, *edited.OriginalSessionID)
	require.Equal(t, 10, edited.ScheduledEnd.Hour())
	require.Equal(t, 30, edited.ScheduledEnd.Minute())

	// The original row survives, retired.
	original, err := env.sessions.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.False(t, original.IsCurrentVersion)
	require.Equal(t, 9, original.ScheduledEnd.Hour())

	// Editing the retired version again is rejected.
	_, err = svc.Edit(context.Background(), session.ID, dto.SessionEditRequest{ScheduledEnd: &newEnd, Reason: "second try"}, Actor{ID: 1, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionServiceLifecycleActsOnCurrentVersionOnly(t *testing.T) {
	env, svc := newSessionServiceForTest(t)
	ctx := context.Background()
	actor := Actor{ID: 1, Role: RoleTeacher}

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)

	newEnd := "10:30"
	edited, err := svc.Edit(ctx, session.ID, dto.SessionEditRequest{
		ScheduledEnd: &newEnd,
		Reason:       "class extended for exam review",
	}, actor)
	require.NoError(t, err)

	// The retired row still reads active but accepts no transitions.
	_, err = svc.Complete(ctx, session.ID, actor)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Cancel(ctx, session.ID, dto.SessionCancelRequest{Reason: "fire drill"}, actor)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Only the current version carries the lifecycle forward.
	completed, err := svc.Complete(ctx, edited.ID, actor)
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, completed.State)
}

func TestSessionServiceEditReasonRules(t *testing.T) {
	env, svc := newSessionServiceForTest(t)

	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	session := env.createSession(t, 1, 10, nil, date)

	newEnd := "10:30"

	_, err := svc.Edit(context.Background(), session.ID, dto.SessionEditRequest{ScheduledEnd: &newEnd}, Actor{ID: 1, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrReasonRequired)

	// Administrators may omit the reason.
	edited, err := svc.Edit(context.Background(), session.ID, dto.SessionEditRequest{ScheduledEnd: &newEnd}, Actor{ID: 2, Role: RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 2, edited.Version)
}

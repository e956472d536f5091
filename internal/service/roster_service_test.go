package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

func TestRosterServiceBundlesStudentsWithAnalytics(t *testing.T) {
	env := newTestEnv(t)
	analytics := NewAnalyticsService(env.records, env.snapshots, nil, time.Minute, &stubNotifier{}, testLogger())
	svc := &rosterService{
		enrollments: env.enrollments,
		analytics:   analytics,
		logger:      testLogger(),
		now:         func() time.Time { return time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC) },
	}

	termStart := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	alice := env.enrollStudent(t, "Alice Johnson", "alice@example.com", 10, termStart)
	bob := env.enrollStudent(t, "Bob Stone", "bob@example.com", 10, termStart)

	session := env.createSession(t, 1, 10, nil, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, env.db.Create(&models.AttendanceRecord{
		SessionID: session.ID, StudentID: alice.ID, StatusID: env.statusID(t, models.StatusAbsent),
		MarkedAt: session.Date, MarkedBy: 1,
		MarkingMethod: models.MarkingManual, Version: 1, IsCurrentVersion: true,
	}).Error)

	bundle, err := svc.BuildBundle(context.Background(), 10, nil)
	require.NoError(t, err)

	require.Equal(t, uint(10), bundle.SectionID)
	require.Nil(t, bundle.SubjectID)
	require.Len(t, bundle.Students, 2)

	// Roster is name-ordered.
	require.Equal(t, alice.ID, bundle.Students[0].ID)
	require.Equal(t, bob.ID, bundle.Students[1].ID)

	require.NotNil(t, bundle.Students[0].Analytics)
	require.Equal(t, 1, bundle.Students[0].Analytics.YearlyAbsences)
	require.NotNil(t, bundle.Students[1].Analytics)
	require.Equal(t, 0, bundle.Students[1].Analytics.YearlyAbsences)
}

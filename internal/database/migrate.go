package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/attendance-api/internal/models"
)

// Migrate builds the schema: table definitions via AutoMigrate, then the
// partial unique indexes that enforce the lifecycle invariants, then the
// status catalog seed. Safe to run repeatedly.
//
// The partial indexes carry the two store-level invariants the services rely
// on under concurrency:
//   - at most one active session per (teacher, section, subject, date),
//   - exactly one current-version record per (session, student).
//
// The SQL form is accepted by both PostgreSQL and SQLite, so tests exercise
// the same constraints as production.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.AttendanceStatus{},
		&models.Student{},
		&models.Enrollment{},
		&models.ScheduleSlot{},
		&models.Session{},
		&models.AttendanceRecord{},
		&models.AuditEntry{},
		&models.AnalyticsSnapshot{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uidx_sessions_one_active
			ON sessions (teacher_id, section_id, COALESCE(subject_id, 0), date)
			WHERE state = 'active' AND is_current_version`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uidx_records_one_current
			ON attendance_records (session_id, student_id)
			WHERE is_current_version`,
	}

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	if err := seedStatuses(db); err != nil {
		return fmt.Errorf("seed statuses: %w", err)
	}

	return nil
}

func seedStatuses(db *gorm.DB) error {
	statuses := []models.AttendanceStatus{
		{Code: models.StatusPresent, Name: "Present", Description: "Student attended the session", SortOrder: 1},
		{Code: models.StatusAbsent, Name: "Absent", Description: "Student did not attend", SortOrder: 2},
		{Code: models.StatusLate, Name: "Late", Description: "Student arrived after the session started", SortOrder: 3},
		{Code: models.StatusExcused, Name: "Excused", Description: "Absence covered by an accepted excuse", SortOrder: 4},
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&statuses).Error
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/observability"
)

// Notification event kinds.
const (
	EventSessionAutoCompleted = "session_auto_completed"
	EventCriticalCase         = "critical_case"
)

// Notifier is the outbound sink for attendance events. Delivery and formatting
// beyond the JSON payload are external concerns.
type Notifier interface {
	SessionAutoCompleted(ctx context.Context, session models.Session, autoMarked int)
	CriticalCase(ctx context.Context, snapshot models.AnalyticsSnapshot)
}

type natsNotifier struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
	nodeID      string
}

type notifierEvent struct {
	Source string      `json:"source"`
	Kind   string      `json:"kind"`
	Data   interface{} `json:"data"`
	SentAt time.Time   `json:"sent_at"`
}

// NewNotifier builds a NATS-backed notifier. A nil connection degrades to
// structured log output only, which keeps local development broker-free.
func NewNotifier(conn *nats.Conn, subjectBase string, logger zerolog.Logger) Notifier {
	if subjectBase == "" {
		subjectBase = "attendance.events"
	}

	return &natsNotifier{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "notifier").Logger(),
		nodeID:      uuid.NewString(),
	}
}

func (n *natsNotifier) SessionAutoCompleted(ctx context.Context, session models.Session, autoMarked int) {
	n.logger.Info().
		Uint("session_id", session.ID).
		Uint("section_id", session.SectionID).
		Int("auto_marked", autoMarked).
		Msg("session auto-completed")

	n.publish(EventSessionAutoCompleted, map[string]interface{}{
		"session_id":  session.ID,
		"teacher_id":  session.TeacherID,
		"section_id":  session.SectionID,
		"subject_id":  session.SubjectID,
		"date":        session.Date.Format("2006-01-02"),
		"auto_marked": autoMarked,
	})
}

func (n *natsNotifier) CriticalCase(ctx context.Context, snapshot models.AnalyticsSnapshot) {
	n.logger.Warn().
		Uint("student_id", snapshot.StudentID).
		Int("yearly_absences", snapshot.YearlyAbsences).
		Str("risk_level", string(snapshot.RiskLevel)).
		Msg("critical attendance case")

	n.publish(EventCriticalCase, map[string]interface{}{
		"student_id":            snapshot.StudentID,
		"analysis_date":         snapshot.AnalysisDate.Format("2006-01-02"),
		"yearly_absences":       snapshot.YearlyAbsences,
		"attendance_rate_30d":   snapshot.AttendanceRate30d,
		"risk_level":            snapshot.RiskLevel,
		"exceeds_absence_limit": snapshot.ExceedsAbsenceLimit,
	})
}

func (n *natsNotifier) publish(kind string, data interface{}) {
	observability.NotificationsPublished().WithLabelValues(kind).Inc()

	if n.conn == nil {
		return
	}

	event := notifierEvent{
		Source: n.nodeID,
		Kind:   kind,
		Data:   data,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Str("kind", kind).Msg("failed to encode notification event")
		return
	}

	if err := n.conn.Publish(n.subjectBase+"."+kind, payload); err != nil {
		n.logger.Warn().Err(err).Str("kind", kind).Msg("failed to publish notification event")
	}
}

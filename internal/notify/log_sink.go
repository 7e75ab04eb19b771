package notify

import (
	"context"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type logSink struct {
	log *logger.Logger
}

// NewLogSink logs outbound messages instead of delivering them; used when no
// Redis endpoint is configured and in tests.
func NewLogSink(log *logger.Logger) Sink {
	return &logSink{log: log.With("service", "LogNotificationSink")}
}

func (s *logSink) Publish(_ context.Context, msg Message) error {
	s.log.Info("notification",
		"event", msg.Event,
		"course_id", msg.CourseID,
		"assignment_id", msg.AssignmentID,
		"group_id", msg.GroupID,
		"participant_count", len(msg.ParticipantIDs),
	)
	return nil
}

func (s *logSink) Close() error { return nil }

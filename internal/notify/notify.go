package notify

import (
	"context"

	"github.com/google/uuid"
)

type Event string

const (
	EventUserJoinedGroup      Event = "USER_JOINED_GROUP"
	EventGroupClosed          Event = "GROUP_CLOSED"
	EventScoreChanged         Event = "SCORE_CHANGED"
	EventRegistrationsRemoved Event = "REGISTRATIONS_REMOVED"
)

// Message is the outbound notification shape delivered to subscribers.
type Message struct {
	Event          Event       `json:"event"`
	CourseID       uuid.UUID   `json:"course_id"`
	AssignmentID   *uuid.UUID  `json:"assignment_id,omitempty"`
	GroupID        *uuid.UUID  `json:"group_id,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// Sink delivers messages to subscribers. Delivery is fire-and-forget and
// at-least-once; consumers must tolerate duplicates.
type Sink interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

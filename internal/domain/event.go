package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventUserJoinedGroup      EventType = "user_joined_group"
	EventUserLeftGroup        EventType = "user_left_group"
	EventGroupClosed          EventType = "group_closed"
	EventScoreChanged         EventType = "score_changed"
	EventRegistrationsRemoved EventType = "registrations_removed"
)

type EventStatus string

const (
	EventQueued     EventStatus = "queued"
	EventProcessing EventStatus = "processing"
	EventDone       EventStatus = "done"
	// EventDead marks events that exhausted their retry budget; they are kept
	// for manual replay instead of being dropped.
	EventDead EventStatus = "dead"
)

// DomainEvent is a durable outbox row enqueued in the same transaction as the
// mutation that caused it. The dispatcher claims rows in Position order per
// course, which makes handler execution follow commit order within a course
// stream while independent courses proceed concurrently.
type DomainEvent struct {
	ID       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Position int64          `gorm:"autoIncrement;uniqueIndex;column:position" json:"position"`
	CourseID uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Type     EventType      `gorm:"not null;index;column:type" json:"type"`
	Payload  datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`

	Status      EventStatus `gorm:"not null;default:'queued';index;column:status" json:"status"`
	Attempts    int         `gorm:"not null;default:0;column:attempts" json:"attempts"`
	LastError   string      `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time  `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	ClaimedAt   *time.Time  `gorm:"column:claimed_at" json:"claimed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DomainEvent) TableName() string { return "domain_event" }

// Event payloads. Marshalled into DomainEvent.Payload; handlers treat them as
// hints only and re-read current state where correctness depends on it.

type UserJoinedGroupPayload struct {
	GroupID       uuid.UUID `json:"group_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
}

type UserLeftGroupPayload struct {
	GroupID       uuid.UUID `json:"group_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
}

type GroupClosedPayload struct {
	GroupID uuid.UUID `json:"group_id"`
}

type ScoreChangedPayload struct {
	AssessmentID  uuid.UUID  `json:"assessment_id"`
	AssignmentID  uuid.UUID  `json:"assignment_id"`
	GroupID       *uuid.UUID `json:"group_id,omitempty"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	OldPoints     float64    `json:"old_points"`
	NewPoints     float64    `json:"new_points"`
}

type RegistrationsRemovedPayload struct {
	AssignmentID   uuid.UUID   `json:"assignment_id"`
	GroupID        *uuid.UUID  `json:"group_id,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty"`
}

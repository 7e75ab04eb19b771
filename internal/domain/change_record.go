package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeRemove ChangeType = "remove"
)

type ChangeObject string

const (
	ChangeObjectGroup        ChangeObject = "group"
	ChangeObjectMembership   ChangeObject = "membership"
	ChangeObjectRegistration ChangeObject = "registration"
	ChangeObjectAssessment   ChangeObject = "assessment"
)

// ChangeRecord is one entry of the append-only per-course change feed.
// Sequence numbers are strictly increasing and gap-free within a course;
// records are written in the same transaction as the mutation they describe.
type ChangeRecord struct {
	ID       uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uq_change_course_sequence;index" json:"course_id"`
	Sequence int64        `gorm:"not null;uniqueIndex:uq_change_course_sequence;column:sequence" json:"sequence"`
	Type     ChangeType   `gorm:"not null;column:type" json:"type"`
	Object   ChangeObject `gorm:"not null;column:object" json:"object"`

	EntityID        uuid.UUID  `gorm:"type:uuid;not null;column:entity_id" json:"entity_id"`
	RelatedEntityID *uuid.UUID `gorm:"type:uuid;column:related_entity_id" json:"related_entity_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ChangeRecord) TableName() string { return "change_record" }

// ChangeSequence is the per-course counter row behind ChangeRecord.Sequence.
// The row lock taken by the upsert-increment serializes appends per course,
// so sequence order equals commit order and readers never observe gaps.
type ChangeSequence struct {
	CourseID uuid.UUID `gorm:"type:uuid;primaryKey" json:"course_id"`
	Value    int64     `gorm:"not null;default:0;column:value" json:"value"`
}

func (ChangeSequence) TableName() string { return "change_sequence" }

package domain

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantRole string

const (
	RoleStudent  ParticipantRole = "student"
	RoleTutor    ParticipantRole = "tutor"
	RoleLecturer ParticipantRole = "lecturer"
)

// Participant identifies a user's role-scoped membership in a course context.
// The role is immutable after creation except by administrative override.
type Participant struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_participant_course_user;index" json:"course_id"`
	Course   *Course         `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	UserID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_participant_course_user" json:"user_id"`
	Role     ParticipantRole `gorm:"not null;column:role" json:"role"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Participant) TableName() string { return "participant" }

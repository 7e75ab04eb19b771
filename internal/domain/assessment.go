package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assessment holds achieved points for a group or single participant on an
// assignment. Only the score-update path of this service touches it; grading
// itself is external.
type Assessment struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssignmentID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"assignment_id"`
	Assignment    *Assignment  `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	GroupID       *uuid.UUID   `gorm:"type:uuid;index" json:"group_id,omitempty"`
	Group         *Group       `gorm:"constraint:OnDelete:SET NULL;foreignKey:GroupID;references:ID" json:"group,omitempty"`
	ParticipantID *uuid.UUID   `gorm:"type:uuid;index" json:"participant_id,omitempty"`
	Participant   *Participant `gorm:"constraint:OnDelete:SET NULL;foreignKey:ParticipantID;references:ID" json:"participant,omitempty"`

	AchievedPoints float64 `gorm:"not null;default:0;column:achieved_points" json:"achieved_points"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Assessment) TableName() string { return "assessment" }

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentRegistration binds a group to an assignment for grading, with a
// snapshot of the group's members at registration time kept as
// RegistrationMember rows. At most one registration exists per
// (assignment_id, group_id) pair.
type AssignmentRegistration struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssignmentID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uq_registration_assignment_group;index" json:"assignment_id"`
	Assignment   *Assignment `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	GroupID      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uq_registration_assignment_group;index" json:"group_id"`
	Group        *Group      `gorm:"constraint:OnDelete:CASCADE;foreignKey:GroupID;references:ID" json:"group,omitempty"`

	Members []*RegistrationMember `gorm:"foreignKey:RegistrationID;references:ID" json:"members,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AssignmentRegistration) TableName() string { return "assignment_registration" }

// RegistrationMember is one participant captured in a registration snapshot.
// Duplicate inserts for the same (registration_id, participant_id) are
// absorbed as no-ops by the registration manager.
type RegistrationMember struct {
	ID             uuid.UUID               `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RegistrationID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:uq_registration_member;index" json:"registration_id"`
	Registration   *AssignmentRegistration `gorm:"constraint:OnDelete:CASCADE;foreignKey:RegistrationID;references:ID" json:"registration,omitempty"`
	ParticipantID  uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:uq_registration_member;index" json:"participant_id"`
	Participant    *Participant            `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParticipantID;references:ID" json:"participant,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RegistrationMember) TableName() string { return "registration_member" }

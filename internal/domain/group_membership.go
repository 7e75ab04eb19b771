package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupMembership is the edge between a group and a participant. The unique
// (group_id, participant_id) index is the mutual-exclusion primitive for
// concurrent joins: the loser of a duplicate insert gets a unique violation.
type GroupMembership struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GroupID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uq_membership_group_participant;index" json:"group_id"`
	Group         *Group       `gorm:"constraint:OnDelete:CASCADE;foreignKey:GroupID;references:ID" json:"group,omitempty"`
	ParticipantID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uq_membership_group_participant;index" json:"participant_id"`
	Participant   *Participant `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParticipantID;references:ID" json:"participant,omitempty"`

	JoinedAt time.Time `gorm:"not null;default:now();column:joined_at" json:"joined_at"`
}

func (GroupMembership) TableName() string { return "group_membership" }

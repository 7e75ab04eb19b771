package domain

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentState string

const (
	AssignmentInvisible  AssignmentState = "invisible"
	AssignmentInProgress AssignmentState = "in_progress"
	AssignmentInReview   AssignmentState = "in_review"
	AssignmentEvaluated  AssignmentState = "evaluated"
)

// Assignment is a referent for registrations and assessments; assignment
// administration lives outside this service.
type Assignment struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID       `gorm:"type:uuid;not null;index" json:"course_id"`
	Course   *Course         `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Name     string          `gorm:"not null;column:name" json:"name"`
	State    AssignmentState `gorm:"not null;default:'invisible';column:state" json:"state"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Assignment) TableName() string { return "assignment" }

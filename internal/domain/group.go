package domain

import (
	"time"

	"github.com/google/uuid"
)

// Group is a named collection of participants within a course, closable to new joins.
// The name is unique within its course; PasswordHash is empty for unprotected groups.
type Group struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_group_course_name;index" json:"course_id"`
	Course       *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Name         string    `gorm:"not null;uniqueIndex:uq_group_course_name;column:name" json:"name"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	IsClosed     bool      `gorm:"not null;default:false;column:is_closed" json:"is_closed"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Group) TableName() string { return "course_group" }

// IsProtected reports whether joining requires a password.
func (g *Group) IsProtected() bool { return g != nil && g.PasswordHash != "" }

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Course is a referent for the membership pipeline; course administration itself
// lives outside this service.
type Course struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Shortname string    `gorm:"uniqueIndex;not null;column:shortname" json:"shortname"`
	Title     string    `gorm:"column:title" json:"title"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

package db

import (
	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Course context (referents)
		// =========================
		&types.Course{},
		&types.Participant{},
		&types.Assignment{},
		&types.Assessment{},

		// =========================
		// Groups + membership edges
		// =========================
		&types.Group{},
		&types.GroupMembership{},

		// =========================
		// Assignment registrations
		// =========================
		&types.AssignmentRegistration{},
		&types.RegistrationMember{},

		// =========================
		// Change feed + event outbox
		// =========================
		&types.ChangeSequence{},
		&types.ChangeRecord{},
		&types.DomainEvent{},
	)
}

package repos

import (
	"gorm.io/gorm"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/assignments"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/changelog"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/courses"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/events"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/groups"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type CourseRepo = courses.CourseRepo
type ParticipantRepo = courses.ParticipantRepo

type GroupRepo = groups.GroupRepo
type MembershipRepo = groups.MembershipRepo

type AssignmentRepo = assignments.AssignmentRepo
type AssessmentRepo = assignments.AssessmentRepo
type RegistrationRepo = assignments.RegistrationRepo

type ChangeRecordRepo = changelog.ChangeRecordRepo
type OutboxRepo = events.OutboxRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return courses.NewCourseRepo(db, baseLog)
}
func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return courses.NewParticipantRepo(db, baseLog)
}
func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return groups.NewGroupRepo(db, baseLog)
}
func NewMembershipRepo(db *gorm.DB, baseLog *logger.Logger) MembershipRepo {
	return groups.NewMembershipRepo(db, baseLog)
}
func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return assignments.NewAssignmentRepo(db, baseLog)
}
func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return assignments.NewAssessmentRepo(db, baseLog)
}
func NewRegistrationRepo(db *gorm.DB, baseLog *logger.Logger) RegistrationRepo {
	return assignments.NewRegistrationRepo(db, baseLog)
}
func NewChangeRecordRepo(db *gorm.DB, baseLog *logger.Logger) ChangeRecordRepo {
	return changelog.NewChangeRecordRepo(db, baseLog)
}
func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return events.NewOutboxRepo(db, baseLog)
}

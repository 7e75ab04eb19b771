package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type AssessmentService interface {
	UpdateScore(ctx context.Context, assessmentID uuid.UUID, points float64) (*domain.Assessment, error)
}

type assessmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	assignmentRepo repos.AssignmentRepo
	assessmentRepo repos.AssessmentRepo
	changeRepo     repos.ChangeRecordRepo
	outboxRepo     repos.OutboxRepo
}

func NewAssessmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assignmentRepo repos.AssignmentRepo,
	assessmentRepo repos.AssessmentRepo,
	changeRepo repos.ChangeRecordRepo,
	outboxRepo repos.OutboxRepo,
) AssessmentService {
	return &assessmentService{
		db:             db,
		log:            baseLog.With("service", "AssessmentService"),
		assignmentRepo: assignmentRepo,
		assessmentRepo: assessmentRepo,
		changeRepo:     changeRepo,
		outboxRepo:     outboxRepo,
	}
}

// UpdateScore sets the achieved points of an assessment. Setting the same
// value again is a no-op: no change record and no event. A real change emits
// both with the old and new points carried in the event payload.
func (as *assessmentService) UpdateScore(ctx context.Context, assessmentID uuid.UUID, points float64) (*domain.Assessment, error) {
	var assessment *domain.Assessment
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		current, err := as.assessmentRepo.GetByID(dbc, assessmentID)
		if err != nil {
			return err
		}
		if current.AchievedPoints == points {
			assessment = current
			return nil
		}
		assignment, err := as.assignmentRepo.GetByID(dbc, current.AssignmentID)
		if err != nil {
			return err
		}
		if err := as.assessmentRepo.UpdatePoints(dbc, assessmentID, points); err != nil {
			return err
		}
		if _, err := as.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID:        assignment.CourseID,
			Type:            domain.ChangeUpdate,
			Object:          domain.ChangeObjectAssessment,
			EntityID:        assessmentID,
			RelatedEntityID: &current.AssignmentID,
		}); err != nil {
			return err
		}
		if _, err := as.outboxRepo.Enqueue(dbc, assignment.CourseID, domain.EventScoreChanged, domain.ScoreChangedPayload{
			AssessmentID:  assessmentID,
			AssignmentID:  current.AssignmentID,
			GroupID:       current.GroupID,
			ParticipantID: current.ParticipantID,
			OldPoints:     current.AchievedPoints,
			NewPoints:     points,
		}); err != nil {
			return err
		}
		assessment, err = as.assessmentRepo.GetByID(dbc, assessmentID)
		return err
	})
	if err != nil {
		as.log.Error("update score failed", "assessment_id", assessmentID, "error", err)
		return nil, err
	}
	return assessment, nil
}

package assignments

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type AssignmentRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{
		db:  db,
		log: baseLog.With("repo", "AssignmentRepo"),
	}
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var assignment types.Assignment
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assignment %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &assignment, nil
}

type AssessmentRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assessment, error)
	UpdatePoints(dbc dbctx.Context, id uuid.UUID, points float64) error
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{
		db:  db,
		log: baseLog.With("repo", "AssessmentRepo"),
	}
}

func (r *assessmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assessment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var assessment types.Assessment
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assessment %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentRepo) UpdatePoints(dbc dbctx.Context, id uuid.UUID, points float64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Assessment{}).
		Where("id = ?", id).
		Update("achieved_points", points)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assessment %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

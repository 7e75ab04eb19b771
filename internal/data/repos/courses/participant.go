package courses

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

type ParticipantRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Participant, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Participant, error)
	ExistsInCourse(dbc dbctx.Context, courseID, participantID uuid.UUID) (bool, error)
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return &participantRepo{
		db:  db,
		log: baseLog.With("repo", "ParticipantRepo"),
	}
}

func (r *participantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Participant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var participant types.Participant
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("participant %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Participant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Participant
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *participantRepo) ExistsInCourse(dbc dbctx.Context, courseID, participantID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Participant{}).
		Where("id = ? AND course_id = ?", participantID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

package groups

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type GroupRepo interface {
	Create(dbc dbctx.Context, group *types.Group) (*types.Group, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Group, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Group, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Group, error)
	NamesBySchema(dbc dbctx.Context, courseID uuid.UUID, schema string) ([]string, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type groupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return &groupRepo{
		db:  db,
		log: baseLog.With("repo", "GroupRepo"),
	}
}

func (r *groupRepo) Create(dbc dbctx.Context, group *types.Group) (*types.Group, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if group == nil {
		return nil, fmt.Errorf("group required")
	}
	if err := transaction.WithContext(dbc.Ctx).Create(group).Error; err != nil {
		if apperrors.IsUniqueViolation(err, "uq_group_course_name") {
			return nil, fmt.Errorf("group name %q taken: %w", group.Name, apperrors.ErrConflict)
		}
		return nil, err
	}
	return group, nil
}

func (r *groupRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Group, error) {
	return r.getByID(dbc, id, false)
}

// GetByIDForUpdate locks the group row until the surrounding transaction ends.
// Joins and auto-close serialize on this lock.
func (r *groupRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Group, error) {
	return r.getByID(dbc, id, true)
}

func (r *groupRepo) getByID(dbc dbctx.Context, id uuid.UUID, forUpdate bool) (*types.Group, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var group types.Group
	if err := q.Where("id = ?", id).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Group, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Group
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

// NamesBySchema returns all group names in the course starting with schema.
func (r *groupRepo) NamesBySchema(dbc dbctx.Context, courseID uuid.UUID, schema string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var names []string
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Group{}).
		Where("course_id = ? AND name LIKE ?", courseID, schema+"%").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *groupRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Group{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if apperrors.IsUniqueViolation(res.Error, "uq_group_course_name") {
			return fmt.Errorf("group name taken: %w", apperrors.ErrConflict)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("group %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

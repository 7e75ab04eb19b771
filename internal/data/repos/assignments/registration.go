package assignments

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

type RegistrationRepo interface {
	Create(dbc dbctx.Context, registration *types.AssignmentRegistration, memberIDs []uuid.UUID) (*types.AssignmentRegistration, error)
	GetByAssignmentAndGroup(dbc dbctx.Context, assignmentID, groupID uuid.UUID) (*types.AssignmentRegistration, error)
	InsertMembers(dbc dbctx.Context, registrationID uuid.UUID, participantIDs []uuid.UUID) (int64, error)
	MemberIDs(dbc dbctx.Context, registrationID uuid.UUID) ([]uuid.UUID, error)
	DeleteMemberByParticipant(dbc dbctx.Context, assignmentID, participantID uuid.UUID) (bool, error)
	DeleteByID(dbc dbctx.Context, registrationID uuid.UUID) (bool, error)
	DeleteAllByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) (int64, error)
	ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.AssignmentRegistration, error)
	ExistsAny(dbc dbctx.Context, assignmentID uuid.UUID) (bool, error)
}

type registrationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegistrationRepo(db *gorm.DB, baseLog *logger.Logger) RegistrationRepo {
	return &registrationRepo{
		db:  db,
		log: baseLog.With("repo", "RegistrationRepo"),
	}
}

// Create inserts a registration plus its member snapshot. A concurrent
// registration of the same (assignment, group) pair surfaces as ErrConflict.
func (r *registrationRepo) Create(dbc dbctx.Context, registration *types.AssignmentRegistration, memberIDs []uuid.UUID) (*types.AssignmentRegistration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if registration == nil {
		return nil, fmt.Errorf("registration required")
	}
	if err := transaction.WithContext(dbc.Ctx).Create(registration).Error; err != nil {
		if apperrors.IsUniqueViolation(err, "uq_registration_assignment_group") {
			return nil, fmt.Errorf("group %s already registered for assignment %s: %w",
				registration.GroupID, registration.AssignmentID, apperrors.ErrConflict)
		}
		return nil, err
	}
	if _, err := r.InsertMembers(dbc, registration.ID, memberIDs); err != nil {
		return nil, err
	}
	return r.GetByAssignmentAndGroup(dbc, registration.AssignmentID, registration.GroupID)
}

func (r *registrationRepo) GetByAssignmentAndGroup(dbc dbctx.Context, assignmentID, groupID uuid.UUID) (*types.AssignmentRegistration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var registration types.AssignmentRegistration
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Members").
		Where("assignment_id = ? AND group_id = ?", assignmentID, groupID).
		First(&registration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("registration for assignment %s group %s: %w",
				assignmentID, groupID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &registration, nil
}

// InsertMembers adds the missing snapshot rows; duplicates are absorbed via
// ON CONFLICT DO NOTHING. Returns the number of rows actually inserted.
func (r *registrationRepo) InsertMembers(dbc dbctx.Context, registrationID uuid.UUID, participantIDs []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(participantIDs) == 0 {
		return 0, nil
	}
	rows := make([]*types.RegistrationMember, 0, len(participantIDs))
	for _, pid := range participantIDs {
		rows = append(rows, &types.RegistrationMember{
			ID:             uuid.New(),
			RegistrationID: registrationID,
			ParticipantID:  pid,
		})
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *registrationRepo) MemberIDs(dbc dbctx.Context, registrationID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.RegistrationMember{}).
		Where("registration_id = ?", registrationID).
		Order("created_at ASC").
		Pluck("participant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteMemberByParticipant removes one participant from whatever registration
// of the assignment contains them; reports whether a row was removed.
func (r *registrationRepo) DeleteMemberByParticipant(dbc dbctx.Context, assignmentID, participantID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	sub := transaction.
		Model(&types.AssignmentRegistration{}).
		Select("id").
		Where("assignment_id = ?", assignmentID)
	res := transaction.WithContext(dbc.Ctx).
		Where("participant_id = ? AND registration_id IN (?)", participantID, sub).
		Delete(&types.RegistrationMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *registrationRepo) DeleteByID(dbc dbctx.Context, registrationID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("registration_id = ?", registrationID).
		Delete(&types.RegistrationMember{}).Error; err != nil {
		return false, err
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ?", registrationID).
		Delete(&types.AssignmentRegistration{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteAllByAssignment drops every registration of the assignment and
// returns how many registrations were removed.
func (r *registrationRepo) DeleteAllByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	sub := transaction.
		Model(&types.AssignmentRegistration{}).
		Select("id").
		Where("assignment_id = ?", assignmentID)
	if err := transaction.WithContext(dbc.Ctx).
		Where("registration_id IN (?)", sub).
		Delete(&types.RegistrationMember{}).Error; err != nil {
		return 0, err
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&types.AssignmentRegistration{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *registrationRepo) ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.AssignmentRegistration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AssignmentRegistration
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Members").
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *registrationRepo) ExistsAny(dbc dbctx.Context, assignmentID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AssignmentRegistration{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

package groups

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type MembershipRepo interface {
	Insert(dbc dbctx.Context, membership *types.GroupMembership) (*types.GroupMembership, error)
	Delete(dbc dbctx.Context, groupID, participantID uuid.UUID) (bool, error)
	Exists(dbc dbctx.Context, groupID, participantID uuid.UUID) (bool, error)
	CountByGroup(dbc dbctx.Context, groupID uuid.UUID) (int64, error)
	CountByGroups(dbc dbctx.Context, groupIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	ParticipantIDsByGroup(dbc dbctx.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

type membershipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMembershipRepo(db *gorm.DB, baseLog *logger.Logger) MembershipRepo {
	return &membershipRepo{
		db:  db,
		log: baseLog.With("repo", "MembershipRepo"),
	}
}

// Insert adds the membership edge. A duplicate (group, participant) pair is
// reported as ErrConflict; under concurrent joins exactly one insert wins.
func (r *membershipRepo) Insert(dbc dbctx.Context, membership *types.GroupMembership) (*types.GroupMembership, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if membership == nil {
		return nil, fmt.Errorf("membership required")
	}
	if err := transaction.WithContext(dbc.Ctx).Create(membership).Error; err != nil {
		if apperrors.IsUniqueViolation(err, "uq_membership_group_participant") {
			return nil, fmt.Errorf("participant %s already in group %s: %w",
				membership.ParticipantID, membership.GroupID, apperrors.ErrConflict)
		}
		return nil, err
	}
	return membership, nil
}

// Delete removes the edge and reports whether a row actually existed.
func (r *membershipRepo) Delete(dbc dbctx.Context, groupID, participantID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("group_id = ? AND participant_id = ?", groupID, participantID).
		Delete(&types.GroupMembership{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *membershipRepo) Exists(dbc dbctx.Context, groupID, participantID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GroupMembership{}).
		Where("group_id = ? AND participant_id = ?", groupID, participantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *membershipRepo) CountByGroup(dbc dbctx.Context, groupID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GroupMembership{}).
		Where("group_id = ?", groupID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByGroups returns the occupancy of each given group; groups without
// members are present in the result with a zero count.
func (r *membershipRepo) CountByGroups(dbc dbctx.Context, groupIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[uuid.UUID]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return out, nil
	}
	for _, id := range groupIDs {
		out[id] = 0
	}
	type row struct {
		GroupID uuid.UUID
		N       int64
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GroupMembership{}).
		Select("group_id, COUNT(*) AS n").
		Where("group_id IN ?", groupIDs).
		Group("group_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.GroupID] = rw.N
	}
	return out, nil
}

func (r *membershipRepo) ParticipantIDsByGroup(dbc dbctx.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GroupMembership{}).
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Pluck("participant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

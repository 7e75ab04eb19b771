package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

// nameSuffixMax bounds the numeric suffix generateAvailableName will probe.
const nameSuffixMax = 9999

type MembershipService interface {
	CreateGroup(ctx context.Context, courseID uuid.UUID, name, password string) (*domain.Group, error)
	CreateGroupFromSchema(ctx context.Context, courseID uuid.UUID, schema, password string) (*domain.Group, error)
	JoinGroup(ctx context.Context, groupID, participantID uuid.UUID, password string) (*domain.GroupMembership, error)
	LeaveGroup(ctx context.Context, groupID, participantID uuid.UUID) (bool, error)
	AssignRandomGroup(ctx context.Context, participantID uuid.UUID, candidateGroupIDs []uuid.UUID) (*domain.Group, error)
	UpdateGroup(ctx context.Context, groupID uuid.UUID, update domain.GroupUpdate) (*domain.Group, error)
	CloseGroupIfEmpty(ctx context.Context, groupID uuid.UUID) (bool, error)
	GenerateAvailableName(ctx context.Context, courseID uuid.UUID, schema string) (string, error)
}

type membershipService struct {
	db              *gorm.DB
	log             *logger.Logger
	courseRepo      repos.CourseRepo
	participantRepo repos.ParticipantRepo
	groupRepo       repos.GroupRepo
	membershipRepo  repos.MembershipRepo
	changeRepo      repos.ChangeRecordRepo
	outboxRepo      repos.OutboxRepo
	groupCapacity   int

	// randIntn is swapped out in tests for deterministic selection.
	randIntn func(n int) int
}

func NewMembershipService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	participantRepo repos.ParticipantRepo,
	groupRepo repos.GroupRepo,
	membershipRepo repos.MembershipRepo,
	changeRepo repos.ChangeRecordRepo,
	outboxRepo repos.OutboxRepo,
	groupCapacity int,
) MembershipService {
	return &membershipService{
		db:              db,
		log:             baseLog.With("service", "MembershipService"),
		courseRepo:      courseRepo,
		participantRepo: participantRepo,
		groupRepo:       groupRepo,
		membershipRepo:  membershipRepo,
		changeRepo:      changeRepo,
		outboxRepo:      outboxRepo,
		groupCapacity:   groupCapacity,
		randIntn:        rand.Intn,
	}
}

func (ms *membershipService) CreateGroup(ctx context.Context, courseID uuid.UUID, name, password string) (*domain.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("group name must not be empty: %w", apperrors.ErrInvalidState)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash group password: %w", err)
	}
	var group *domain.Group
	err = ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		exists, err := ms.courseRepo.Exists(dbc, courseID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("course %s: %w", courseID, apperrors.ErrNotFound)
		}
		group = &domain.Group{
			CourseID:     courseID,
			Name:         name,
			PasswordHash: hash,
		}
		if _, err := ms.groupRepo.Create(dbc, group); err != nil {
			return err
		}
		_, err = ms.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID: courseID,
			Type:     domain.ChangeInsert,
			Object:   domain.ChangeObjectGroup,
			EntityID: group.ID,
		})
		return err
	})
	if err != nil {
		ms.log.Error("create group failed", "course_id", courseID, "name", name, "error", err)
		return nil, err
	}
	return group, nil
}

// CreateGroupFromSchema derives the group name from the course naming schema.
// Losing the name race to a concurrent creator is expected under bulk setup,
// so a duplicate-name conflict is retried once with a fresh suffix.
func (ms *membershipService) CreateGroupFromSchema(ctx context.Context, courseID uuid.UUID, schema, password string) (*domain.Group, error) {
	for attempt := 0; attempt < 2; attempt++ {
		name, err := ms.GenerateAvailableName(ctx, courseID, schema)
		if err != nil {
			return nil, err
		}
		group, err := ms.CreateGroup(ctx, courseID, name, password)
		if err == nil {
			return group, nil
		}
		if !apperrors.IsConflict(err) {
			return nil, err
		}
		ms.log.Warn("generated group name taken, retrying", "course_id", courseID, "name", name)
	}
	return nil, fmt.Errorf("no free group name for schema %q: %w", schema, apperrors.ErrConflict)
}

func (ms *membershipService) JoinGroup(ctx context.Context, groupID, participantID uuid.UUID, password string) (*domain.GroupMembership, error) {
	var membership *domain.GroupMembership
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		group, err := ms.groupRepo.GetByIDForUpdate(dbc, groupID)
		if err != nil {
			return err
		}
		participant, err := ms.participantRepo.GetByID(dbc, participantID)
		if err != nil {
			return err
		}
		if participant.CourseID != group.CourseID {
			return fmt.Errorf("participant %s not in course %s: %w", participantID, group.CourseID, apperrors.ErrNotFound)
		}
		if group.IsClosed {
			return fmt.Errorf("group %s is closed: %w", groupID, apperrors.ErrInvalidState)
		}
		if group.IsProtected() {
			if bcrypt.CompareHashAndPassword([]byte(group.PasswordHash), []byte(password)) != nil {
				return fmt.Errorf("group %s: %w", groupID, apperrors.ErrInvalidPassword)
			}
		}
		membership = &domain.GroupMembership{
			GroupID:       groupID,
			ParticipantID: participantID,
		}
		if _, err := ms.membershipRepo.Insert(dbc, membership); err != nil {
			return err
		}
		if _, err := ms.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID:        group.CourseID,
			Type:            domain.ChangeInsert,
			Object:          domain.ChangeObjectMembership,
			EntityID:        groupID,
			RelatedEntityID: &participantID,
		}); err != nil {
			return err
		}
		_, err = ms.outboxRepo.Enqueue(dbc, group.CourseID, domain.EventUserJoinedGroup, domain.UserJoinedGroupPayload{
			GroupID:       groupID,
			ParticipantID: participantID,
		})
		return err
	})
	if err != nil {
		ms.log.Error("join group failed", "group_id", groupID, "participant_id", participantID, "error", err)
		return nil, err
	}
	return membership, nil
}

// LeaveGroup removes the participant from the group. Removing a participant
// that never joined is a no-op and reports false without emitting anything.
func (ms *membershipService) LeaveGroup(ctx context.Context, groupID, participantID uuid.UUID) (bool, error) {
	var removed bool
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		group, err := ms.groupRepo.GetByID(dbc, groupID)
		if err != nil {
			return err
		}
		removed, err = ms.membershipRepo.Delete(dbc, groupID, participantID)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		if _, err := ms.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID:        group.CourseID,
			Type:            domain.ChangeRemove,
			Object:          domain.ChangeObjectMembership,
			EntityID:        groupID,
			RelatedEntityID: &participantID,
		}); err != nil {
			return err
		}
		_, err = ms.outboxRepo.Enqueue(dbc, group.CourseID, domain.EventUserLeftGroup, domain.UserLeftGroupPayload{
			GroupID:       groupID,
			ParticipantID: participantID,
		})
		return err
	})
	if err != nil {
		ms.log.Error("leave group failed", "group_id", groupID, "participant_id", participantID, "error", err)
		return false, err
	}
	return removed, nil
}

// AssignRandomGroup places the participant into one of the candidate groups,
// preferring the least occupied ones and breaking ties at random. A candidate
// that races to capacity or closes between selection and join is dropped and
// the selection runs once more over the remaining candidates.
func (ms *membershipService) AssignRandomGroup(ctx context.Context, participantID uuid.UUID, candidateGroupIDs []uuid.UUID) (*domain.Group, error) {
	dbc := dbctx.New(ctx)
	groups, err := ms.groupRepo.GetByIDs(dbc, candidateGroupIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidate groups: %w", err)
	}
	excluded := make(map[uuid.UUID]bool)
	for attempt := 0; attempt < 2; attempt++ {
		counts, err := ms.membershipRepo.CountByGroups(dbc, candidateGroupIDs)
		if err != nil {
			return nil, fmt.Errorf("count group occupancy: %w", err)
		}
		pick := pickLeastOccupied(groups, counts, ms.groupCapacity, excluded, ms.randIntn)
		if pick == nil {
			break
		}
		if _, err := ms.JoinGroup(ctx, pick.ID, participantID, ""); err != nil {
			if apperrors.IsConflict(err) || apperrors.IsInvalidState(err) {
				excluded[pick.ID] = true
				continue
			}
			return nil, err
		}
		return pick, nil
	}
	ms.log.Warn("no joinable group among candidates", "participant_id", participantID, "candidates", len(candidateGroupIDs))
	return nil, fmt.Errorf("participant %s: %w", participantID, apperrors.ErrNoAvailableGroup)
}

// pickLeastOccupied returns an open, unprotected group with the fewest
// members below capacity, chosen at random among the tied minimum.
func pickLeastOccupied(
	groups []*domain.Group,
	counts map[uuid.UUID]int64,
	capacity int,
	excluded map[uuid.UUID]bool,
	randIntn func(int) int,
) *domain.Group {
	var eligible []*domain.Group
	minCount := int64(capacity)
	for _, g := range groups {
		if g.IsClosed || g.IsProtected() || excluded[g.ID] {
			continue
		}
		n := counts[g.ID]
		if n >= int64(capacity) {
			continue
		}
		switch {
		case n < minCount:
			minCount = n
			eligible = eligible[:0]
			eligible = append(eligible, g)
		case n == minCount:
			eligible = append(eligible, g)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].ID.String() < eligible[j].ID.String()
	})
	return eligible[randIntn(len(eligible))]
}

func (ms *membershipService) UpdateGroup(ctx context.Context, groupID uuid.UUID, update domain.GroupUpdate) (*domain.Group, error) {
	var group *domain.Group
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		current, err := ms.groupRepo.GetByIDForUpdate(dbc, groupID)
		if err != nil {
			return err
		}
		fields := map[string]any{}
		if update.Name != nil {
			fields["name"] = *update.Name
		}
		if update.IsClosed != nil {
			fields["is_closed"] = *update.IsClosed
		}
		switch update.Password.Kind {
		case domain.PasswordUnchanged:
		case domain.PasswordClear:
			fields["password_hash"] = ""
		case domain.PasswordSet:
			hash, err := hashPassword(update.Password.Value)
			if err != nil {
				return fmt.Errorf("hash group password: %w", err)
			}
			fields["password_hash"] = hash
		}
		if len(fields) == 0 {
			group = current
			return nil
		}
		if err := ms.groupRepo.UpdateFields(dbc, groupID, fields); err != nil {
			return err
		}
		if _, err := ms.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID: current.CourseID,
			Type:     domain.ChangeUpdate,
			Object:   domain.ChangeObjectGroup,
			EntityID: groupID,
		}); err != nil {
			return err
		}
		if update.IsClosed != nil && *update.IsClosed && !current.IsClosed {
			if _, err := ms.outboxRepo.Enqueue(dbc, current.CourseID, domain.EventGroupClosed, domain.GroupClosedPayload{
				GroupID: groupID,
			}); err != nil {
				return err
			}
		}
		group, err = ms.groupRepo.GetByID(dbc, groupID)
		return err
	})
	if err != nil {
		ms.log.Error("update group failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return group, nil
}

// CloseGroupIfEmpty closes the group when its last member has left. The group
// row is locked so a join racing with the close either lands before the
// member count is read or blocks until the close committed and is rejected.
// Already-closed and repopulated groups are left alone, which makes the
// operation safe to redeliver.
func (ms *membershipService) CloseGroupIfEmpty(ctx context.Context, groupID uuid.UUID) (bool, error) {
	var closed bool
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		group, err := ms.groupRepo.GetByIDForUpdate(dbc, groupID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		if group.IsClosed {
			return nil
		}
		count, err := ms.membershipRepo.CountByGroup(dbc, groupID)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := ms.groupRepo.UpdateFields(dbc, groupID, map[string]any{"is_closed": true}); err != nil {
			return err
		}
		if _, err := ms.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID: group.CourseID,
			Type:     domain.ChangeUpdate,
			Object:   domain.ChangeObjectGroup,
			EntityID: groupID,
		}); err != nil {
			return err
		}
		if _, err := ms.outboxRepo.Enqueue(dbc, group.CourseID, domain.EventGroupClosed, domain.GroupClosedPayload{
			GroupID: groupID,
		}); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		ms.log.Error("close empty group failed", "group_id", groupID, "error", err)
		return false, err
	}
	return closed, nil
}

func (ms *membershipService) GenerateAvailableName(ctx context.Context, courseID uuid.UUID, schema string) (string, error) {
	taken, err := ms.groupRepo.NamesBySchema(dbctx.New(ctx), courseID, schema)
	if err != nil {
		return "", fmt.Errorf("list group names: %w", err)
	}
	suffix := smallestFreeSuffix(schema, taken)
	if suffix == 0 {
		return "", fmt.Errorf("all %d names for schema %q taken: %w", nameSuffixMax, schema, apperrors.ErrNameSpaceExhausted)
	}
	return schema + strconv.Itoa(suffix), nil
}

// smallestFreeSuffix returns the lowest suffix in [1, nameSuffixMax] not
// already used by a name of the form schema+digits, or 0 when none is free.
func smallestFreeSuffix(schema string, taken []string) int {
	used := make(map[int]bool, len(taken))
	for _, name := range taken {
		rest := strings.TrimPrefix(name, schema)
		if rest == name {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		used[n] = true
	}
	for i := 1; i <= nameSuffixMax; i++ {
		if !used[i] {
			return i
		}
	}
	return 0
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

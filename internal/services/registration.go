package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

// registerConcurrency bounds the parallel per-group transactions of a bulk
// registration run.
const registerConcurrency = 4

type RegistrationService interface {
	RegisterGroup(ctx context.Context, assignmentID, groupID uuid.UUID, memberIDs []uuid.UUID) (*domain.AssignmentRegistration, error)
	RegisterGroups(ctx context.Context, assignmentID uuid.UUID, groupIDs []uuid.UUID) ([]*domain.AssignmentRegistration, error)
	RemoveForParticipant(ctx context.Context, assignmentID, participantID uuid.UUID) error
	RemoveForGroup(ctx context.Context, assignmentID, groupID uuid.UUID) (bool, error)
	RemoveAll(ctx context.Context, assignmentID uuid.UUID) (int64, error)
	HasAnyRegistration(ctx context.Context, assignmentID uuid.UUID) (bool, error)
}

type registrationService struct {
	db             *gorm.DB
	log            *logger.Logger
	concurrency    int
	assignmentRepo repos.AssignmentRepo
	groupRepo      repos.GroupRepo
	membershipRepo repos.MembershipRepo
	regRepo        repos.RegistrationRepo
	changeRepo     repos.ChangeRecordRepo
	outboxRepo     repos.OutboxRepo
}

func NewRegistrationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assignmentRepo repos.AssignmentRepo,
	groupRepo repos.GroupRepo,
	membershipRepo repos.MembershipRepo,
	regRepo repos.RegistrationRepo,
	changeRepo repos.ChangeRecordRepo,
	outboxRepo repos.OutboxRepo,
) RegistrationService {
	return &registrationService{
		db:             db,
		log:            baseLog.With("service", "RegistrationService"),
		concurrency:    registerConcurrency,
		assignmentRepo: assignmentRepo,
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		regRepo:        regRepo,
		changeRepo:     changeRepo,
		outboxRepo:     outboxRepo,
	}
}

// RegisterGroup registers the group for the assignment with the given member
// snapshot. When a registration already exists the snapshots are merged:
// missing members are appended, duplicates are absorbed, nothing is removed.
func (rs *registrationService) RegisterGroup(ctx context.Context, assignmentID, groupID uuid.UUID, memberIDs []uuid.UUID) (*domain.AssignmentRegistration, error) {
	var registration *domain.AssignmentRegistration
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		assignment, err := rs.assignmentRepo.GetByID(dbc, assignmentID)
		if err != nil {
			return err
		}
		group, err := rs.groupRepo.GetByID(dbc, groupID)
		if err != nil {
			return err
		}
		if group.CourseID != assignment.CourseID {
			return fmt.Errorf("group %s not in course %s: %w", groupID, assignment.CourseID, apperrors.ErrNotFound)
		}
		existing, err := rs.regRepo.GetByAssignmentAndGroup(dbc, assignmentID, groupID)
		switch {
		case err == nil:
			added, err := rs.regRepo.InsertMembers(dbc, existing.ID, memberIDs)
			if err != nil {
				return err
			}
			if added > 0 {
				if _, err := rs.changeRepo.Append(dbc, &domain.ChangeRecord{
					CourseID:        assignment.CourseID,
					Type:            domain.ChangeUpdate,
					Object:          domain.ChangeObjectRegistration,
					EntityID:        existing.ID,
					RelatedEntityID: &groupID,
				}); err != nil {
					return err
				}
			}
			registration, err = rs.regRepo.GetByAssignmentAndGroup(dbc, assignmentID, groupID)
			return err
		case apperrors.IsNotFound(err):
			created, err := rs.regRepo.Create(dbc, &domain.AssignmentRegistration{
				AssignmentID: assignmentID,
				GroupID:      groupID,
			}, memberIDs)
			if err != nil {
				return err
			}
			if _, err := rs.changeRepo.Append(dbc, &domain.ChangeRecord{
				CourseID:        assignment.CourseID,
				Type:            domain.ChangeInsert,
				Object:          domain.ChangeObjectRegistration,
				EntityID:        created.ID,
				RelatedEntityID: &groupID,
			}); err != nil {
				return err
			}
			registration = created
			return nil
		default:
			return err
		}
	})
	if err != nil {
		rs.log.Error("register group failed", "assignment_id", assignmentID, "group_id", groupID, "error", err)
		return nil, err
	}
	return registration, nil
}

// RegisterGroups registers each group with a snapshot of its current members.
// Each group runs in its own transaction so one failing group does not roll
// back the others; failed groups are logged and skipped, and the successful
// registrations are returned.
func (rs *registrationService) RegisterGroups(ctx context.Context, assignmentID uuid.UUID, groupIDs []uuid.UUID) ([]*domain.AssignmentRegistration, error) {
	if _, err := rs.assignmentRepo.GetByID(dbctx.New(ctx), assignmentID); err != nil {
		return nil, err
	}

	results := make([]*domain.AssignmentRegistration, len(groupIDs))
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rs.concurrency)
	for i, groupID := range groupIDs {
		g.Go(func() error {
			memberIDs, err := rs.membershipRepo.ParticipantIDsByGroup(dbctx.New(gctx), groupID)
			if err == nil {
				results[i], err = rs.RegisterGroup(gctx, assignmentID, groupID, memberIDs)
			}
			if err != nil {
				rs.log.Warn("skipping group in bulk registration", "assignment_id", assignmentID, "group_id", groupID, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	registrations := make([]*domain.AssignmentRegistration, 0, len(groupIDs))
	for _, r := range results {
		if r != nil {
			registrations = append(registrations, r)
		}
	}
	if failed > 0 {
		rs.log.Warn("bulk registration finished with failures", "assignment_id", assignmentID, "registered", len(registrations), "failed", failed)
	}
	return registrations, nil
}

// RemoveForParticipant removes one participant from their registration
// snapshot. It fails with a not-found error when the participant is not part
// of any registration for the assignment.
func (rs *registrationService) RemoveForParticipant(ctx context.Context, assignmentID, participantID uuid.UUID) error {
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		assignment, err := rs.assignmentRepo.GetByID(dbc, assignmentID)
		if err != nil {
			return err
		}
		removed, err := rs.regRepo.DeleteMemberByParticipant(dbc, assignmentID, participantID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("participant %s not registered for assignment %s: %w", participantID, assignmentID, apperrors.ErrNotFound)
		}
		_, err = rs.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID:        assignment.CourseID,
			Type:            domain.ChangeUpdate,
			Object:          domain.ChangeObjectRegistration,
			EntityID:        assignmentID,
			RelatedEntityID: &participantID,
		})
		return err
	})
	if err != nil {
		rs.log.Error("remove registered participant failed", "assignment_id", assignmentID, "participant_id", participantID, "error", err)
		return err
	}
	return nil
}

// RemoveForGroup drops the group's registration including its member
// snapshot. Removing a group that is not registered reports false without
// emitting anything.
func (rs *registrationService) RemoveForGroup(ctx context.Context, assignmentID, groupID uuid.UUID) (bool, error) {
	var removed bool
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		assignment, err := rs.assignmentRepo.GetByID(dbc, assignmentID)
		if err != nil {
			return err
		}
		registration, err := rs.regRepo.GetByAssignmentAndGroup(dbc, assignmentID, groupID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		memberIDs := make([]uuid.UUID, 0, len(registration.Members))
		for _, m := range registration.Members {
			memberIDs = append(memberIDs, m.ParticipantID)
		}
		if _, err := rs.regRepo.DeleteByID(dbc, registration.ID); err != nil {
			return err
		}
		if _, err := rs.changeRepo.Append(dbc, &domain.ChangeRecord{
			CourseID:        assignment.CourseID,
			Type:            domain.ChangeRemove,
			Object:          domain.ChangeObjectRegistration,
			EntityID:        registration.ID,
			RelatedEntityID: &groupID,
		}); err != nil {
			return err
		}
		// One event for the whole snapshot, not one per member.
		if _, err := rs.outboxRepo.Enqueue(dbc, assignment.CourseID, domain.EventRegistrationsRemoved, domain.RegistrationsRemovedPayload{
			AssignmentID:   assignmentID,
			GroupID:        &groupID,
			ParticipantIDs: memberIDs,
		}); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		rs.log.Error("remove group registration failed", "assignment_id", assignmentID, "group_id", groupID, "error", err)
		return false, err
	}
	return removed, nil
}

// RemoveAll drops every registration of the assignment and returns how many
// were removed. All removals commit atomically with one batched event
// covering every affected participant.
func (rs *registrationService) RemoveAll(ctx context.Context, assignmentID uuid.UUID) (int64, error) {
	var count int64
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		assignment, err := rs.assignmentRepo.GetByID(dbc, assignmentID)
		if err != nil {
			return err
		}
		registrations, err := rs.regRepo.ListByAssignment(dbc, assignmentID)
		if err != nil {
			return err
		}
		if len(registrations) == 0 {
			return nil
		}
		var participantIDs []uuid.UUID
		seen := make(map[uuid.UUID]bool)
		for _, reg := range registrations {
			for _, m := range reg.Members {
				if !seen[m.ParticipantID] {
					seen[m.ParticipantID] = true
					participantIDs = append(participantIDs, m.ParticipantID)
				}
			}
		}
		count, err = rs.regRepo.DeleteAllByAssignment(dbc, assignmentID)
		if err != nil {
			return err
		}
		for _, reg := range registrations {
			groupID := reg.GroupID
			if _, err := rs.changeRepo.Append(dbc, &domain.ChangeRecord{
				CourseID:        assignment.CourseID,
				Type:            domain.ChangeRemove,
				Object:          domain.ChangeObjectRegistration,
				EntityID:        reg.ID,
				RelatedEntityID: &groupID,
			}); err != nil {
				return err
			}
		}
		_, err = rs.outboxRepo.Enqueue(dbc, assignment.CourseID, domain.EventRegistrationsRemoved, domain.RegistrationsRemovedPayload{
			AssignmentID:   assignmentID,
			ParticipantIDs: participantIDs,
		})
		return err
	})
	if err != nil {
		rs.log.Error("remove all registrations failed", "assignment_id", assignmentID, "error", err)
		return 0, err
	}
	return count, nil
}

func (rs *registrationService) HasAnyRegistration(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	return rs.regRepo.ExistsAny(dbctx.New(ctx), assignmentID)
}

package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, shortname string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:        uuid.New(),
		Shortname: shortname,
		Title:     "course",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedParticipant(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, role types.ParticipantRole) *types.Participant {
	tb.Helper()
	p := &types.Participant{
		ID:       uuid.New(),
		CourseID: courseID,
		UserID:   uuid.New(),
		Role:     role,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed participant: %v", err)
	}
	return p
}

func SeedGroup(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, name string) *types.Group {
	tb.Helper()
	g := &types.Group{
		ID:       uuid.New(),
		CourseID: courseID,
		Name:     name,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed group: %v", err)
	}
	return g
}

func SeedMembership(tb testing.TB, ctx context.Context, tx *gorm.DB, groupID, participantID uuid.UUID) *types.GroupMembership {
	tb.Helper()
	m := &types.GroupMembership{
		ID:            uuid.New(),
		GroupID:       groupID,
		ParticipantID: participantID,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed membership: %v", err)
	}
	return m
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, name string) *types.Assignment {
	tb.Helper()
	a := &types.Assignment{
		ID:       uuid.New(),
		CourseID: courseID,
		Name:     name,
		State:    types.AssignmentInProgress,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedAssessment(tb testing.TB, ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, groupID *uuid.UUID, points float64) *types.Assessment {
	tb.Helper()
	a := &types.Assessment{
		ID:             uuid.New(),
		AssignmentID:   assignmentID,
		GroupID:        groupID,
		AchievedPoints: points,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assessment: %v", err)
	}
	return a
}

// SeedGroups creates n empty groups named prefix1..prefixN.
func SeedGroups(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, prefix string, n int) []*types.Group {
	tb.Helper()
	out := make([]*types.Group, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, SeedGroup(tb, ctx, tx, courseID, fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}

package assignments

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/testutil"
	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
)

func TestCreateIsExclusivePerAssignmentAndGroup(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRegistrationRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	group := testutil.SeedGroup(t, ctx, tx, course.ID, "Team1")
	assignment := testutil.SeedAssignment(t, ctx, tx, course.ID, "Sheet 01")
	p1 := testutil.SeedParticipant(t, ctx, tx, course.ID, types.RoleStudent)

	reg, err := repo.Create(dbc, &types.AssignmentRegistration{
		AssignmentID: assignment.ID,
		GroupID:      group.ID,
	}, []uuid.UUID{p1.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = repo.Create(dbc, &types.AssignmentRegistration{
		AssignmentID: assignment.ID,
		GroupID:      group.ID,
	}, nil)
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict for second registration, got %v", err)
	}

	stored, err := repo.GetByAssignmentAndGroup(dbc, assignment.ID, group.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.ID != reg.ID {
		t.Fatalf("expected registration %s, got %s", reg.ID, stored.ID)
	}
	if len(stored.Members) != 1 || stored.Members[0].ParticipantID != p1.ID {
		t.Fatalf("expected snapshot with participant %s, got %+v", p1.ID, stored.Members)
	}
}

func TestInsertMembersAbsorbsDuplicates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRegistrationRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	group := testutil.SeedGroup(t, ctx, tx, course.ID, "Team1")
	assignment := testutil.SeedAssignment(t, ctx, tx, course.ID, "Sheet 01")
	p1 := testutil.SeedParticipant(t, ctx, tx, course.ID, types.RoleStudent)
	p2 := testutil.SeedParticipant(t, ctx, tx, course.ID, types.RoleStudent)

	reg, err := repo.Create(dbc, &types.AssignmentRegistration{
		AssignmentID: assignment.ID,
		GroupID:      group.ID,
	}, []uuid.UUID{p1.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	added, err := repo.InsertMembers(dbc, reg.ID, []uuid.UUID{p1.ID, p2.ID})
	if err != nil {
		t.Fatalf("insert members: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 new member, got %d", added)
	}

	ids, err := repo.MemberIDs(dbc, reg.ID)
	if err != nil {
		t.Fatalf("member ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 members, got %d", len(ids))
	}
}

func TestDeleteMemberByParticipant(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRegistrationRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	group := testutil.SeedGroup(t, ctx, tx, course.ID, "Team1")
	assignment := testutil.SeedAssignment(t, ctx, tx, course.ID, "Sheet 01")
	p1 := testutil.SeedParticipant(t, ctx, tx, course.ID, types.RoleStudent)

	if _, err := repo.Create(dbc, &types.AssignmentRegistration{
		AssignmentID: assignment.ID,
		GroupID:      group.ID,
	}, []uuid.UUID{p1.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := repo.DeleteMemberByParticipant(dbc, assignment.ID, p1.ID)
	if err != nil {
		t.Fatalf("delete member: %v", err)
	}
	if !removed {
		t.Fatal("expected member to be removed")
	}

	removed, err = repo.DeleteMemberByParticipant(dbc, assignment.ID, p1.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed {
		t.Fatal("expected second delete to be a no-op")
	}
}

func TestDeleteAllByAssignmentRemovesSnapshots(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRegistrationRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	assignment := testutil.SeedAssignment(t, ctx, tx, course.ID, "Sheet 01")
	groups := testutil.SeedGroups(t, ctx, tx, course.ID, "Team", 3)
	for _, g := range groups {
		p := testutil.SeedParticipant(t, ctx, tx, course.ID, types.RoleStudent)
		if _, err := repo.Create(dbc, &types.AssignmentRegistration{
			AssignmentID: assignment.ID,
			GroupID:      g.ID,
		}, []uuid.UUID{p.ID}); err != nil {
			t.Fatalf("create for %s: %v", g.Name, err)
		}
	}

	count, err := repo.DeleteAllByAssignment(dbc, assignment.ID)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 removed registrations, got %d", count)
	}

	exists, err := repo.ExistsAny(dbc, assignment.ID)
	if err != nil {
		t.Fatalf("exists any: %v", err)
	}
	if exists {
		t.Fatal("expected no registrations left")
	}
}

package changelog

import (
	"context"
	"testing"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/testutil"
	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
)

func TestAppendRequiresTransaction(t *testing.T) {
	db := testutil.DB(t)
	repo := NewChangeRecordRepo(db, testutil.Logger(t))

	ctx := context.Background()
	_, err := repo.Append(dbctx.New(ctx), &types.ChangeRecord{})
	if err == nil {
		t.Fatal("expected error when appending without a transaction")
	}
}

func TestAppendSequencesAreGapFreePerCourse(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewChangeRecordRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	group := testutil.SeedGroup(t, ctx, tx, course.ID, "Team1")

	for want := int64(1); want <= 5; want++ {
		seq, err := repo.Append(dbc, &types.ChangeRecord{
			CourseID: course.ID,
			Type:     types.ChangeUpdate,
			Object:   types.ChangeObjectGroup,
			EntityID: group.ID,
		})
		if err != nil {
			t.Fatalf("append %d: %v", want, err)
		}
		if seq != want {
			t.Fatalf("expected sequence %d, got %d", want, seq)
		}
	}

	latest, err := repo.LatestSequence(dbc, course.ID)
	if err != nil {
		t.Fatalf("latest sequence: %v", err)
	}
	if latest != 5 {
		t.Fatalf("expected latest sequence 5, got %d", latest)
	}
}

func TestAppendSequencesAreIndependentPerCourse(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewChangeRecordRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	courseA := testutil.SeedCourse(t, ctx, tx, "java-001")
	courseB := testutil.SeedCourse(t, ctx, tx, "ssp-001")
	groupA := testutil.SeedGroup(t, ctx, tx, courseA.ID, "Team1")
	groupB := testutil.SeedGroup(t, ctx, tx, courseB.ID, "Team1")

	for i := 0; i < 3; i++ {
		if _, err := repo.Append(dbc, &types.ChangeRecord{
			CourseID: courseA.ID,
			Type:     types.ChangeUpdate,
			Object:   types.ChangeObjectGroup,
			EntityID: groupA.ID,
		}); err != nil {
			t.Fatalf("append course A: %v", err)
		}
	}
	seq, err := repo.Append(dbc, &types.ChangeRecord{
		CourseID: courseB.ID,
		Type:     types.ChangeInsert,
		Object:   types.ChangeObjectGroup,
		EntityID: groupB.ID,
	})
	if err != nil {
		t.Fatalf("append course B: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected course B to start at sequence 1, got %d", seq)
	}
}

func TestReadSincePagesInOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewChangeRecordRepo(db, testutil.Logger(t))

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	group := testutil.SeedGroup(t, ctx, tx, course.ID, "Team1")

	for i := 0; i < 7; i++ {
		if _, err := repo.Append(dbc, &types.ChangeRecord{
			CourseID: course.ID,
			Type:     types.ChangeUpdate,
			Object:   types.ChangeObjectGroup,
			EntityID: group.ID,
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	var got []int64
	cursor := int64(0)
	for {
		page, err := repo.ReadSince(dbc, course.ID, cursor, 3)
		if err != nil {
			t.Fatalf("read since %d: %v", cursor, err)
		}
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			got = append(got, rec.Sequence)
		}
		cursor = page[len(page)-1].Sequence
	}

	if len(got) != 7 {
		t.Fatalf("expected 7 records, got %d", len(got))
	}
	for i, seq := range got {
		if seq != int64(i+1) {
			t.Fatalf("expected sequence %d at index %d, got %d", i+1, i, seq)
		}
	}

	// Re-reading from a stored cursor yields the same suffix.
	again, err := repo.ReadSince(dbc, course.ID, 4, 0)
	if err != nil {
		t.Fatalf("read since 4: %v", err)
	}
	if len(again) != 3 {
		t.Fatalf("expected 3 records after cursor 4, got %d", len(again))
	}
	if again[0].Sequence != 5 {
		t.Fatalf("expected first record after cursor 4 to be sequence 5, got %d", again[0].Sequence)
	}
}

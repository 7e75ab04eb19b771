package services

import (
	"context"
	"testing"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/testutil"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
)

func TestReadSinceAdvancesCursor(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	feed := NewChangeFeedService(tx, log, repos.NewChangeRecordRepo(tx, log))
	membership := newMembershipService(t, tx)

	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, tx, "java-001")
	group := testutil.SeedGroup(t, ctx, tx, course.ID, "Team1")
	for i := 0; i < 3; i++ {
		p := testutil.SeedParticipant(t, ctx, tx, course.ID, domain.RoleStudent)
		if _, err := membership.JoinGroup(ctx, group.ID, p.ID, ""); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	page, next, err := feed.ReadSince(ctx, course.ID, 0, 2)
	if err != nil {
		t.Fatalf("read since 0: %v", err)
	}
	if len(page) != 2 || next != 2 {
		t.Fatalf("expected 2 records and cursor 2, got %d and %d", len(page), next)
	}

	page, next, err = feed.ReadSince(ctx, course.ID, next, 2)
	if err != nil {
		t.Fatalf("read since 2: %v", err)
	}
	if len(page) != 1 || next != 3 {
		t.Fatalf("expected 1 record and cursor 3, got %d and %d", len(page), next)
	}

	// An exhausted feed leaves the cursor where it was.
	page, next, err = feed.ReadSince(ctx, course.ID, next, 2)
	if err != nil {
		t.Fatalf("read since 3: %v", err)
	}
	if len(page) != 0 || next != 3 {
		t.Fatalf("expected empty page and cursor 3, got %d and %d", len(page), next)
	}

	latest, err := feed.LatestSequence(ctx, course.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != 3 {
		t.Fatalf("expected latest sequence 3, got %d", latest)
	}
}

package services

import (
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
)

func TestSmallestFreeSuffix(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		taken  []string
		want   int
	}{
		{"empty course", "Team", nil, 1},
		{"dense prefix", "Team", []string{"Team1", "Team2", "Team3"}, 4},
		{"reuses gap", "Team", []string{"Team1", "Team3"}, 2},
		{"ignores other schemas", "Team", []string{"Crew1", "Team1"}, 2},
		{"ignores non numeric rest", "Team", []string{"TeamAlpha", "Team2x"}, 1},
		{"freed name comes back", "Team", []string{"Team2"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := smallestFreeSuffix(tc.schema, tc.taken); got != tc.want {
				t.Fatalf("expected suffix %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSmallestFreeSuffixExhausted(t *testing.T) {
	taken := make([]string, 0, nameSuffixMax)
	for i := 1; i <= nameSuffixMax; i++ {
		taken = append(taken, "Team"+strconv.Itoa(i))
	}
	if got := smallestFreeSuffix("Team", taken); got != 0 {
		t.Fatalf("expected exhaustion, got suffix %d", got)
	}
}

func TestPickLeastOccupiedPrefersEmptiestGroup(t *testing.T) {
	g1 := &domain.Group{ID: uuid.New()}
	g2 := &domain.Group{ID: uuid.New()}
	counts := map[uuid.UUID]int64{g1.ID: 2, g2.ID: 1}

	pick := pickLeastOccupied([]*domain.Group{g1, g2}, counts, 5, nil, func(n int) int { return 0 })
	if pick == nil || pick.ID != g2.ID {
		t.Fatalf("expected least occupied group, got %+v", pick)
	}
}

func TestPickLeastOccupiedSkipsClosedProtectedAndFull(t *testing.T) {
	closed := &domain.Group{ID: uuid.New(), IsClosed: true}
	protected := &domain.Group{ID: uuid.New(), PasswordHash: "x"}
	full := &domain.Group{ID: uuid.New()}
	counts := map[uuid.UUID]int64{full.ID: 3}

	pick := pickLeastOccupied([]*domain.Group{closed, protected, full}, counts, 3, nil, func(n int) int { return 0 })
	if pick != nil {
		t.Fatalf("expected no candidate, got %s", pick.ID)
	}
}

func TestPickLeastOccupiedBreaksTiesDeterministically(t *testing.T) {
	g1 := &domain.Group{ID: uuid.New()}
	g2 := &domain.Group{ID: uuid.New()}
	lowest := g1
	if g2.ID.String() < g1.ID.String() {
		lowest = g2
	}

	// With a pinned random source the tie is broken by id order, regardless
	// of the order the groups were passed in.
	for _, perm := range [][]*domain.Group{{g1, g2}, {g2, g1}} {
		pick := pickLeastOccupied(perm, map[uuid.UUID]int64{}, 5, nil, func(n int) int { return 0 })
		if pick == nil || pick.ID != lowest.ID {
			t.Fatalf("expected lowest id group, got %+v", pick)
		}
	}
}

func TestPickLeastOccupiedHonorsExclusions(t *testing.T) {
	g1 := &domain.Group{ID: uuid.New()}
	g2 := &domain.Group{ID: uuid.New()}
	counts := map[uuid.UUID]int64{}

	pick := pickLeastOccupied([]*domain.Group{g1, g2}, counts, 5, map[uuid.UUID]bool{g1.ID: true}, func(n int) int { return 0 })
	if pick == nil || pick.ID != g2.ID {
		t.Fatalf("expected excluded group to be skipped, got %+v", pick)
	}
}

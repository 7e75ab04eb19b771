package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

const (
	defaultFeedPageSize = 100
	maxFeedPageSize     = 500
)

// ChangeFeedService exposes the per-course change feed to consumers. Readers
// page through records by sequence cursor; because sequences are gap-free a
// consumer that persists the last sequence it saw can resume without loss.
type ChangeFeedService interface {
	ReadSince(ctx context.Context, courseID uuid.UUID, cursor int64, pageSize int) ([]*domain.ChangeRecord, int64, error)
	LatestSequence(ctx context.Context, courseID uuid.UUID) (int64, error)
}

type changeFeedService struct {
	db         *gorm.DB
	log        *logger.Logger
	changeRepo repos.ChangeRecordRepo
}

func NewChangeFeedService(db *gorm.DB, baseLog *logger.Logger, changeRepo repos.ChangeRecordRepo) ChangeFeedService {
	return &changeFeedService{
		db:         db,
		log:        baseLog.With("service", "ChangeFeedService"),
		changeRepo: changeRepo,
	}
}

// ReadSince returns up to pageSize records with sequence greater than cursor,
// in sequence order, together with the cursor for the next page. The returned
// cursor equals the input when the feed is exhausted.
func (cs *changeFeedService) ReadSince(ctx context.Context, courseID uuid.UUID, cursor int64, pageSize int) ([]*domain.ChangeRecord, int64, error) {
	if pageSize <= 0 {
		pageSize = defaultFeedPageSize
	}
	if pageSize > maxFeedPageSize {
		pageSize = maxFeedPageSize
	}
	records, err := cs.changeRepo.ReadSince(dbctx.New(ctx), courseID, cursor, pageSize)
	if err != nil {
		cs.log.Error("read change feed failed", "course_id", courseID, "cursor", cursor, "error", err)
		return nil, cursor, err
	}
	next := cursor
	if len(records) > 0 {
		next = records[len(records)-1].Sequence
	}
	return records, next, nil
}

func (cs *changeFeedService) LatestSequence(ctx context.Context, courseID uuid.UUID) (int64, error) {
	return cs.changeRepo.LatestSequence(dbctx.New(ctx), courseID)
}

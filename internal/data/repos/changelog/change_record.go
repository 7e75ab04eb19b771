package changelog

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type ChangeRecordRepo interface {
	Append(dbc dbctx.Context, record *types.ChangeRecord) (int64, error)
	ReadSince(dbc dbctx.Context, courseID uuid.UUID, cursor int64, limit int) ([]*types.ChangeRecord, error)
	LatestSequence(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
}

type changeRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeRecordRepo(db *gorm.DB, baseLog *logger.Logger) ChangeRecordRepo {
	return &changeRecordRepo{
		db:  db,
		log: baseLog.With("repo", "ChangeRecordRepo"),
	}
}

// Append assigns the next per-course sequence number and inserts the record.
// It must run on the same transaction as the mutation it describes: the
// upsert-increment below locks the course's counter row until that
// transaction commits, which serializes appends per course and makes
// sequence order equal commit order with no gaps.
func (r *changeRecordRepo) Append(dbc dbctx.Context, record *types.ChangeRecord) (int64, error) {
	if dbc.Tx == nil {
		return 0, fmt.Errorf("change record append requires a transaction")
	}
	if record == nil {
		return 0, fmt.Errorf("record required")
	}
	if record.CourseID == uuid.Nil {
		return 0, fmt.Errorf("record course id required")
	}

	var seq int64
	err := dbc.Tx.WithContext(dbc.Ctx).Raw(`
    INSERT INTO change_sequence (course_id, value)
    VALUES (?, 1)
    ON CONFLICT (course_id)
    DO UPDATE SET value = change_sequence.value + 1
    RETURNING value
  `, record.CourseID).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("advance change sequence: %w", err)
	}

	record.Sequence = seq
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := dbc.Tx.WithContext(dbc.Ctx).Create(record).Error; err != nil {
		return 0, fmt.Errorf("append change record: %w", err)
	}
	return seq, nil
}

// ReadSince returns the course's records with sequence > cursor in ascending
// order. The same cursor always yields the same suffix, so polling clients
// can resume after a crash with the last sequence they processed.
func (r *changeRecordRepo) ReadSince(dbc dbctx.Context, courseID uuid.UUID, cursor int64, limit int) ([]*types.ChangeRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("course_id = ? AND sequence > ?", courseID, cursor).
		Order("sequence ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.ChangeRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *changeRecordRepo) LatestSequence(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var seq int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ChangeRecord{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

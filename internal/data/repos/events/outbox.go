package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	apperrors "github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/errors"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

type OutboxRepo interface {
	Enqueue(dbc dbctx.Context, courseID uuid.UUID, eventType types.EventType, payload interface{}) (*types.DomainEvent, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleClaim time.Duration) (*types.DomainEvent, error)
	MarkDone(dbc dbctx.Context, id uuid.UUID) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, handlerErr error, maxAttempts int) (bool, error)
	Requeue(dbc dbctx.Context, id uuid.UUID) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DomainEvent, error)
	ListDead(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.DomainEvent, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{
		db:  db,
		log: baseLog.With("repo", "OutboxRepo"),
	}
}

// Enqueue writes the event row. Callers enqueue on the same transaction as
// the mutation so the event becomes visible exactly when the mutation does.
func (r *outboxRepo) Enqueue(dbc dbctx.Context, courseID uuid.UUID, eventType types.EventType, payload interface{}) (*types.DomainEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	ev := &types.DomainEvent{
		ID:       uuid.New(),
		CourseID: courseID,
		Type:     eventType,
		Payload:  datatypes.JSON(raw),
		Status:   types.EventQueued,
	}
	if err := transaction.WithContext(dbc.Ctx).Create(ev).Error; err != nil {
		return nil, fmt.Errorf("enqueue event: %w", err)
	}
	return ev, nil
}

// ClaimNextRunnable picks the oldest claimable event and moves it to
// processing. An event is claimable when it is queued and past its retry
// delay, or processing but stale-claimed by a crashed worker — and no earlier
// unfinished event exists for the same course, which keeps handler execution
// in commit order per course stream. SKIP LOCKED lets workers on independent
// courses claim concurrently.
func (r *outboxRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleClaim time.Duration) (*types.DomainEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleClaim)

	var claimed *types.DomainEvent
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var ev types.DomainEvent
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND claimed_at IS NOT NULL
            AND claimed_at < ?
          )
        )
        AND NOT EXISTS (
          SELECT 1 FROM domain_event prev
          WHERE prev.course_id = domain_event.course_id
            AND prev.position < domain_event.position
            AND prev.status IN (?, ?)
        )
      `, types.EventQueued, maxAttempts, retryCutoff,
				types.EventProcessing, staleCutoff,
				types.EventQueued, types.EventProcessing).
			Order("position ASC").
			Limit(1).
			Find(&ev)
		if q.Error != nil {
			return q.Error
		}
		if q.RowsAffected == 0 {
			return nil
		}
		updates := map[string]interface{}{
			"status":     types.EventProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"claimed_at": now,
			"updated_at": now,
		}
		if err := txx.Model(&types.DomainEvent{}).
			Where("id = ?", ev.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		ev.Status = types.EventProcessing
		ev.Attempts++
		ev.ClaimedAt = &now
		claimed = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *outboxRepo) MarkDone(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.DomainEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.EventDone,
			"updated_at": time.Now(),
		}).Error
}

// MarkFailed records the handler error. The event goes back to queued for a
// delayed retry, or to dead once the attempt ceiling is reached; it is never
// dropped. Returns whether the event was dead-lettered.
func (r *outboxRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, handlerErr error, maxAttempts int) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	ev, err := r.GetByID(dbc, id)
	if err != nil {
		return false, err
	}
	now := time.Now()
	status := types.EventQueued
	dead := ev.Attempts >= maxAttempts
	if dead {
		status = types.EventDead
	}
	msg := ""
	if handlerErr != nil {
		msg = handlerErr.Error()
	}
	err = transaction.WithContext(dbc.Ctx).
		Model(&types.DomainEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"last_error":    msg,
			"last_error_at": now,
			"updated_at":    now,
		}).Error
	if err != nil {
		return false, err
	}
	return dead, nil
}

// Requeue resets a dead-lettered event for manual replay.
func (r *outboxRepo) Requeue(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.DomainEvent{}).
		Where("id = ? AND status = ?", id, types.EventDead).
		Updates(map[string]interface{}{
			"status":        types.EventQueued,
			"attempts":      0,
			"last_error":    "",
			"last_error_at": nil,
			"claimed_at":    nil,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dead event %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *outboxRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DomainEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ev types.DomainEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &ev, nil
}

func (r *outboxRepo) ListDead(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.DomainEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("status = ?", types.EventDead).
		Order("position ASC")
	if courseID != uuid.Nil {
		q = q.Where("course_id = ?", courseID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.DomainEvent
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

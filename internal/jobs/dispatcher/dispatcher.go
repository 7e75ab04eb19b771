package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/config"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
)

// Dispatcher drains the event outbox. Each worker polls for the next
// claimable event and runs its handler chain; claims are serialized per
// course stream by the repo, so concurrency only helps across courses.
type Dispatcher struct {
	db       *gorm.DB
	log      *logger.Logger
	outbox   repos.OutboxRepo
	registry *Registry
	cfg      config.Worker

	done chan struct{}
}

func New(db *gorm.DB, baseLog *logger.Logger, outbox repos.OutboxRepo, registry *Registry, cfg config.Worker) *Dispatcher {
	return &Dispatcher{
		db:       db,
		log:      baseLog.With("component", "EventDispatcher"),
		outbox:   outbox,
		registry: registry,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	concurrency := d.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	d.log.Info("Starting event dispatcher", "concurrency", concurrency, "max_attempts", d.cfg.MaxAttempts)

	go func() {
		defer close(d.done)
		workers := make(chan struct{}, concurrency)
		for i := 0; i < concurrency; i++ {
			workerID := i + 1
			go func() {
				defer func() { workers <- struct{}{} }()
				d.runLoop(ctx, workerID)
			}()
		}
		for i := 0; i < concurrency; i++ {
			<-workers
		}
	}()
}

// Wait blocks until every worker loop has exited after ctx is cancelled.
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(d.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Dispatcher loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for {
				ev, err := d.outbox.ClaimNextRunnable(dbctx.New(ctx), d.cfg.MaxAttempts, d.cfg.RetryDelay(), d.cfg.StaleClaim())
				if err != nil {
					d.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if ev == nil {
					break
				}
				d.dispatch(ctx, workerID, ev)
			}
		}
	}
}

var tracer = otel.Tracer("stu-website-service/dispatcher")

func (d *Dispatcher) dispatch(ctx context.Context, workerID int, ev *domain.DomainEvent) {
	ctx, span := tracer.Start(ctx, "event.dispatch", trace.WithAttributes(
		attribute.String("event.id", ev.ID.String()),
		attribute.String("event.type", string(ev.Type)),
		attribute.String("course.id", ev.CourseID.String()),
		attribute.Int("event.attempts", ev.Attempts),
	))
	defer span.End()

	handlers := d.registry.Get(ev.Type)
	if len(handlers) == 0 {
		// Nothing cares about this type; drain it so it does not block the
		// course stream.
		d.log.Warn("No handler registered for event type",
			"worker_id", workerID,
			"event_type", ev.Type,
			"event_id", ev.ID,
		)
		if err := d.outbox.MarkDone(dbctx.New(ctx), ev.ID); err != nil {
			d.log.Error("MarkDone failed", "event_id", ev.ID, "error", err)
		}
		return
	}

	err := d.runHandlers(ctx, workerID, ev, handlers)
	if err == nil {
		if err := d.outbox.MarkDone(dbctx.New(ctx), ev.ID); err != nil {
			d.log.Error("MarkDone failed", "event_id", ev.ID, "error", err)
		}
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "handler chain failed")
	dead, markErr := d.outbox.MarkFailed(dbctx.New(ctx), ev.ID, err, d.cfg.MaxAttempts)
	if markErr != nil {
		d.log.Error("MarkFailed failed", "event_id", ev.ID, "error", markErr)
		return
	}
	if dead {
		d.log.Error("Event dead-lettered",
			"worker_id", workerID,
			"event_id", ev.ID,
			"event_type", ev.Type,
			"course_id", ev.CourseID,
			"attempts", ev.Attempts,
			"error", err,
		)
	} else {
		d.log.Warn("Event handling failed, requeued",
			"worker_id", workerID,
			"event_id", ev.ID,
			"event_type", ev.Type,
			"attempts", ev.Attempts,
			"error", err,
		)
	}
}

// runHandlers executes the chain in order and stops at the first failure.
// A redelivery reruns the whole chain, which is why the handlers are
// idempotent.
func (d *Dispatcher) runHandlers(ctx context.Context, workerID int, ev *domain.DomainEvent, handlers []Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Event handler panic",
				"worker_id", workerID,
				"event_id", ev.ID,
				"event_type", ev.Type,
				"panic", r,
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	for _, h := range handlers {
		if herr := h.Handle(ctx, ev); herr != nil {
			return fmt.Errorf("handler %s: %w", h.Name(), herr)
		}
	}
	return nil
}

package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/config"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/testutil"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/pkg/dbctx"
)

type fakeOutbox struct {
	doneIDs   []uuid.UUID
	failedIDs []uuid.UUID
	lastErr   error
	dead      bool
}

func (f *fakeOutbox) Enqueue(dbctx.Context, uuid.UUID, domain.EventType, interface{}) (*domain.DomainEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOutbox) ClaimNextRunnable(dbctx.Context, int, time.Duration, time.Duration) (*domain.DomainEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkDone(_ dbctx.Context, id uuid.UUID) error {
	f.doneIDs = append(f.doneIDs, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ dbctx.Context, id uuid.UUID, handlerErr error, _ int) (bool, error) {
	f.failedIDs = append(f.failedIDs, id)
	f.lastErr = handlerErr
	return f.dead, nil
}

func (f *fakeOutbox) Requeue(dbctx.Context, uuid.UUID) error { return nil }

func (f *fakeOutbox) GetByID(dbctx.Context, uuid.UUID) (*domain.DomainEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOutbox) ListDead(dbctx.Context, uuid.UUID, int) ([]*domain.DomainEvent, error) {
	return nil, nil
}

type recordingHandler struct {
	name  string
	err   error
	seen  int
	panic bool
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(context.Context, *domain.DomainEvent) error {
	h.seen++
	if h.panic {
		panic("boom")
	}
	return h.err
}

func testEvent(eventType domain.EventType) *domain.DomainEvent {
	return &domain.DomainEvent{
		ID:       uuid.New(),
		CourseID: uuid.New(),
		Type:     eventType,
		Payload:  []byte(`{}`),
		Status:   domain.EventProcessing,
		Attempts: 1,
	}
}

func newTestDispatcher(tb testing.TB, outbox *fakeOutbox, registry *Registry) *Dispatcher {
	tb.Helper()
	return New(nil, testutil.Logger(tb), outbox, registry, config.Default().Worker)
}

func TestDispatchMarksDoneAfterAllHandlers(t *testing.T) {
	outbox := &fakeOutbox{}
	registry := NewRegistry()
	first := &recordingHandler{name: "first"}
	second := &recordingHandler{name: "second"}
	if err := registry.Register(domain.EventGroupClosed, first); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(domain.EventGroupClosed, second); err != nil {
		t.Fatalf("register: %v", err)
	}
	d := newTestDispatcher(t, outbox, registry)

	ev := testEvent(domain.EventGroupClosed)
	d.dispatch(context.Background(), 1, ev)

	if first.seen != 1 || second.seen != 1 {
		t.Fatalf("expected both handlers to run once, got %d and %d", first.seen, second.seen)
	}
	if len(outbox.doneIDs) != 1 || outbox.doneIDs[0] != ev.ID {
		t.Fatalf("expected event marked done, got %v", outbox.doneIDs)
	}
	if len(outbox.failedIDs) != 0 {
		t.Fatalf("expected no failures, got %v", outbox.failedIDs)
	}
}

func TestDispatchStopsChainOnFirstFailure(t *testing.T) {
	outbox := &fakeOutbox{}
	registry := NewRegistry()
	failing := &recordingHandler{name: "failing", err: errors.New("boom")}
	after := &recordingHandler{name: "after"}
	if err := registry.Register(domain.EventScoreChanged, failing); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(domain.EventScoreChanged, after); err != nil {
		t.Fatalf("register: %v", err)
	}
	d := newTestDispatcher(t, outbox, registry)

	ev := testEvent(domain.EventScoreChanged)
	d.dispatch(context.Background(), 1, ev)

	if after.seen != 0 {
		t.Fatal("expected chain to stop at the failing handler")
	}
	if len(outbox.failedIDs) != 1 || outbox.failedIDs[0] != ev.ID {
		t.Fatalf("expected event marked failed, got %v", outbox.failedIDs)
	}
	if outbox.lastErr == nil {
		t.Fatal("expected handler error to be recorded")
	}
	if len(outbox.doneIDs) != 0 {
		t.Fatalf("expected no done mark, got %v", outbox.doneIDs)
	}
}

func TestDispatchRecoversFromHandlerPanic(t *testing.T) {
	outbox := &fakeOutbox{}
	registry := NewRegistry()
	panicking := &recordingHandler{name: "panicking", panic: true}
	if err := registry.Register(domain.EventUserLeftGroup, panicking); err != nil {
		t.Fatalf("register: %v", err)
	}
	d := newTestDispatcher(t, outbox, registry)

	ev := testEvent(domain.EventUserLeftGroup)
	d.dispatch(context.Background(), 1, ev)

	if len(outbox.failedIDs) != 1 {
		t.Fatalf("expected panic to mark the event failed, got %v", outbox.failedIDs)
	}
}

func TestDispatchDrainsUnhandledEventTypes(t *testing.T) {
	outbox := &fakeOutbox{}
	d := newTestDispatcher(t, outbox, NewRegistry())

	ev := testEvent(domain.EventUserJoinedGroup)
	d.dispatch(context.Background(), 1, ev)

	if len(outbox.doneIDs) != 1 {
		t.Fatalf("expected unhandled event to be drained, got %v", outbox.doneIDs)
	}
}

func TestRegistryRejectsBrokenHandlers(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(domain.EventGroupClosed, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
	if err := registry.Register(domain.EventGroupClosed, &recordingHandler{name: ""}); err == nil {
		t.Fatal("expected error for unnamed handler")
	}
	if got := registry.Get(domain.EventGroupClosed); len(got) != 0 {
		t.Fatalf("expected empty chain, got %d", len(got))
	}
}

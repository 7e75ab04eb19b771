package dispatcher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos/testutil"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/notify"
)

type fakeSink struct {
	published []notify.Message
}

func (s *fakeSink) Publish(_ context.Context, msg notify.Message) error {
	s.published = append(s.published, msg)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func payloadFor(tb testing.TB, v interface{}) []byte {
	tb.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestScoreChangedHandlerPublishesDelta(t *testing.T) {
	sink := &fakeSink{}
	h := NewScoreChangedHandler(sink, testutil.Logger(t))

	groupID := uuid.New()
	ev := testEvent(domain.EventScoreChanged)
	ev.Payload = payloadFor(t, domain.ScoreChangedPayload{
		AssessmentID: uuid.New(),
		AssignmentID: uuid.New(),
		GroupID:      &groupID,
		OldPoints:    5,
		NewPoints:    8,
	})

	if err := h.Handle(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.published) != 1 {
		t.Fatalf("expected one message, got %d", len(sink.published))
	}
	msg := sink.published[0]
	if msg.Event != notify.EventScoreChanged {
		t.Fatalf("unexpected event %s", msg.Event)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape %T", msg.Data)
	}
	if data["delta"] != float64(3) {
		t.Fatalf("expected delta 3, got %v", data["delta"])
	}
}

func TestScoreChangedHandlerRejectsGarbagePayload(t *testing.T) {
	h := NewScoreChangedHandler(&fakeSink{}, testutil.Logger(t))
	ev := testEvent(domain.EventScoreChanged)
	ev.Payload = []byte(`{broken`)

	if err := h.Handle(context.Background(), ev); err == nil {
		t.Fatal("expected error for undecodable payload")
	}
}

func TestRegistrationsRemovedHandlerForwardsBatch(t *testing.T) {
	sink := &fakeSink{}
	h := NewRegistrationsRemovedHandler(sink, testutil.Logger(t))

	participants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	ev := testEvent(domain.EventRegistrationsRemoved)
	ev.Payload = payloadFor(t, domain.RegistrationsRemovedPayload{
		AssignmentID:   uuid.New(),
		ParticipantIDs: participants,
	})

	if err := h.Handle(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.published) != 1 {
		t.Fatalf("expected one batched message, got %d", len(sink.published))
	}
	if len(sink.published[0].ParticipantIDs) != 3 {
		t.Fatalf("expected 3 participants in one message, got %d", len(sink.published[0].ParticipantIDs))
	}
}

func TestGroupNotifyHandlerMapsEventTypes(t *testing.T) {
	sink := &fakeSink{}
	h := NewGroupNotifyHandler(sink, testutil.Logger(t))

	joined := testEvent(domain.EventUserJoinedGroup)
	joined.Payload = payloadFor(t, domain.UserJoinedGroupPayload{
		GroupID:       uuid.New(),
		ParticipantID: uuid.New(),
	})
	if err := h.Handle(context.Background(), joined); err != nil {
		t.Fatalf("handle joined: %v", err)
	}

	closed := testEvent(domain.EventGroupClosed)
	closed.Payload = payloadFor(t, domain.GroupClosedPayload{GroupID: uuid.New()})
	if err := h.Handle(context.Background(), closed); err != nil {
		t.Fatalf("handle closed: %v", err)
	}

	if len(sink.published) != 2 {
		t.Fatalf("expected two messages, got %d", len(sink.published))
	}
	if sink.published[0].Event != notify.EventUserJoinedGroup {
		t.Fatalf("unexpected first event %s", sink.published[0].Event)
	}
	if sink.published[1].Event != notify.EventGroupClosed {
		t.Fatalf("unexpected second event %s", sink.published[1].Event)
	}
	if len(sink.published[0].ParticipantIDs) != 1 {
		t.Fatalf("expected participant in join message, got %v", sink.published[0].ParticipantIDs)
	}
}

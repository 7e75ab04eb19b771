package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/notify"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/services"
)

// CloseEmptyGroupsHandler reacts to a participant leaving by closing the
// group when nobody is left. The close re-checks membership under a row lock,
// so a join that slipped in after the event was written wins and the group
// stays open.
type CloseEmptyGroupsHandler struct {
	membership services.MembershipService
	log        *logger.Logger
}

func NewCloseEmptyGroupsHandler(membership services.MembershipService, baseLog *logger.Logger) *CloseEmptyGroupsHandler {
	return &CloseEmptyGroupsHandler{
		membership: membership,
		log:        baseLog.With("handler", "CloseEmptyGroups"),
	}
}

func (h *CloseEmptyGroupsHandler) Name() string { return "close_empty_groups" }

func (h *CloseEmptyGroupsHandler) Handle(ctx context.Context, ev *domain.DomainEvent) error {
	var payload domain.UserLeftGroupPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	closed, err := h.membership.CloseGroupIfEmpty(ctx, payload.GroupID)
	if err != nil {
		return err
	}
	if closed {
		h.log.Info("Closed empty group", "group_id", payload.GroupID, "course_id", ev.CourseID)
	}
	return nil
}

// ScoreChangedHandler publishes score updates to subscribers, carrying old
// and new points so clients can render the delta without another request.
type ScoreChangedHandler struct {
	sink notify.Sink
	log  *logger.Logger
}

func NewScoreChangedHandler(sink notify.Sink, baseLog *logger.Logger) *ScoreChangedHandler {
	return &ScoreChangedHandler{
		sink: sink,
		log:  baseLog.With("handler", "ScoreChanged"),
	}
}

func (h *ScoreChangedHandler) Name() string { return "score_changed_notify" }

func (h *ScoreChangedHandler) Handle(ctx context.Context, ev *domain.DomainEvent) error {
	var payload domain.ScoreChangedPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	assignmentID := payload.AssignmentID
	var participantIDs []uuid.UUID
	if payload.ParticipantID != nil {
		participantIDs = append(participantIDs, *payload.ParticipantID)
	}
	return h.sink.Publish(ctx, notify.Message{
		Event:          notify.EventScoreChanged,
		CourseID:       ev.CourseID,
		AssignmentID:   &assignmentID,
		GroupID:        payload.GroupID,
		ParticipantIDs: participantIDs,
		Data: map[string]interface{}{
			"assessment_id": payload.AssessmentID,
			"old_points":    payload.OldPoints,
			"new_points":    payload.NewPoints,
			"delta":         payload.NewPoints - payload.OldPoints,
		},
	})
}

// RegistrationsRemovedHandler fans one batched removal event out to
// subscribers as a single message listing every affected participant.
type RegistrationsRemovedHandler struct {
	sink notify.Sink
	log  *logger.Logger
}

func NewRegistrationsRemovedHandler(sink notify.Sink, baseLog *logger.Logger) *RegistrationsRemovedHandler {
	return &RegistrationsRemovedHandler{
		sink: sink,
		log:  baseLog.With("handler", "RegistrationsRemoved"),
	}
}

func (h *RegistrationsRemovedHandler) Name() string { return "registrations_removed_notify" }

func (h *RegistrationsRemovedHandler) Handle(ctx context.Context, ev *domain.DomainEvent) error {
	var payload domain.RegistrationsRemovedPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	assignmentID := payload.AssignmentID
	return h.sink.Publish(ctx, notify.Message{
		Event:          notify.EventRegistrationsRemoved,
		CourseID:       ev.CourseID,
		AssignmentID:   &assignmentID,
		GroupID:        payload.GroupID,
		ParticipantIDs: payload.ParticipantIDs,
	})
}

// GroupNotifyHandler forwards join and close events to subscribers.
type GroupNotifyHandler struct {
	sink notify.Sink
	log  *logger.Logger
}

func NewGroupNotifyHandler(sink notify.Sink, baseLog *logger.Logger) *GroupNotifyHandler {
	return &GroupNotifyHandler{
		sink: sink,
		log:  baseLog.With("handler", "GroupNotify"),
	}
}

func (h *GroupNotifyHandler) Name() string { return "group_notify" }

func (h *GroupNotifyHandler) Handle(ctx context.Context, ev *domain.DomainEvent) error {
	switch ev.Type {
	case domain.EventUserJoinedGroup:
		var payload domain.UserJoinedGroupPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		groupID := payload.GroupID
		return h.sink.Publish(ctx, notify.Message{
			Event:          notify.EventUserJoinedGroup,
			CourseID:       ev.CourseID,
			GroupID:        &groupID,
			ParticipantIDs: []uuid.UUID{payload.ParticipantID},
		})
	case domain.EventGroupClosed:
		var payload domain.GroupClosedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		groupID := payload.GroupID
		return h.sink.Publish(ctx, notify.Message{
			Event:    notify.EventGroupClosed,
			CourseID: ev.CourseID,
			GroupID:  &groupID,
		})
	default:
		return nil
	}
}

// internal/notify/bus.go
package notify

import (
	"context"

	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/models"
	"tour-estimate-workers/internal/sessionbus"
)

// Publisher publishes session events. *sessionbus.Bus satisfies it.
type Publisher interface {
	Publish(sessionID, eventType string, payload interface{}) sessionbus.Event
}

// EstimateEvent is the payload of every estimate-related session event.
type EstimateEvent struct {
	Trigger         estimate.Trigger      `json:"trigger"`
	EstimateID      string                `json:"estimateId,omitempty"`
	ShareToken      string                `json:"shareToken,omitempty"`
	Status          models.EstimateStatus `json:"status,omitempty"`
	PreviousStatus  models.EstimateStatus `json:"previousStatus,omitempty"`
	HasPlaceholders bool                  `json:"hasPlaceholders"`
	ItemCount       int                   `json:"itemCount"`
	RevisionID      string                `json:"revisionId,omitempty"`
	UserID          string                `json:"userId,omitempty"`
}

// BusHook mirrors every committed change onto the session's event stream so
// the customer and admin views refresh.
type BusHook struct {
	bus Publisher
}

func NewBusHook(bus Publisher) *BusHook {
	return &BusHook{bus: bus}
}

func (h *BusHook) Name() string { return "session-bus" }

func (h *BusHook) Fire(_ context.Context, n estimate.Notice) error {
	sessionID := n.SessionID()
	if sessionID == "" {
		return nil
	}
	h.bus.Publish(sessionID, eventType(n.Trigger), payloadOf(n))
	return nil
}

func eventType(t estimate.Trigger) string {
	switch t {
	case estimate.TriggerGenerated:
		return sessionbus.EventEstimateGenerated
	case estimate.TriggerSubmitted:
		return sessionbus.EventEstimateSubmitted
	case estimate.TriggerItemUpdated:
		return sessionbus.EventEstimateItemUpdated
	case estimate.TriggerIdentityLinked:
		return sessionbus.EventSessionLinked
	default:
		return sessionbus.EventEstimateStatusChanged
	}
}

func payloadOf(n estimate.Notice) EstimateEvent {
	ev := EstimateEvent{Trigger: n.Trigger, PreviousStatus: n.Previous}
	if n.Estimate != nil {
		ev.EstimateID = n.Estimate.ID
		ev.ShareToken = n.Estimate.ShareToken
		ev.Status = n.Estimate.Status
		ev.HasPlaceholders = n.Estimate.HasPlaceholders()
		ev.ItemCount = len(n.Estimate.Items)
	}
	if n.Revision != nil {
		ev.RevisionID = n.Revision.ID
	}
	if n.Session != nil && n.Session.UserID != nil {
		ev.UserID = *n.Session.UserID
	}
	return ev
}

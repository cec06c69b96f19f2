// Package estimate owns the estimate lifecycle: status transitions, the
// idempotent submission and identity guards, item edits and post-commit hooks.
package estimate

import (
	"errors"

	"tour-estimate-workers/internal/models"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrEstimateNotFound     = errors.New("estimate not found")
	ErrItemNotFound         = errors.New("estimate item not found")
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")
	ErrStateConflict        = errors.New("operation not allowed in current state")
	ErrAlreadyAttached      = errors.New("session already has an estimate")
	ErrIdentityConflict     = errors.New("session linked to another identity")
	ErrInvalidResponse      = errors.New("unsupported estimate response")
	ErrMissingIdentity      = errors.New("identity is required")
)

// forward lists the legal forward edges. Revisions are handled separately.
var forward = map[models.EstimateStatus][]models.EstimateStatus{
	models.StatusDraft:    {models.StatusPending},
	models.StatusPending:  {models.StatusSent},
	models.StatusSent:     {models.StatusApproved, models.StatusCancelled},
	models.StatusApproved: {models.StatusCompleted},
}

// revisable are the statuses from which a revision resets to pending.
var revisable = []models.EstimateStatus{models.StatusSent, models.StatusPending}

// editable are the statuses in which items may be resolved or removed.
var editable = []models.EstimateStatus{models.StatusDraft, models.StatusPending}

func CanTransition(from, to models.EstimateStatus) bool {
	for _, s := range forward[from] {
		if s == to {
			return true
		}
	}
	return false
}

// sourcesOf returns the statuses with a forward edge into to.
func sourcesOf(to models.EstimateStatus) []models.EstimateStatus {
	var out []models.EstimateStatus
	for _, from := range []models.EstimateStatus{
		models.StatusDraft, models.StatusPending, models.StatusSent, models.StatusApproved,
	} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

func contains(statuses []models.EstimateStatus, s models.EstimateStatus) bool {
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}

// Action is an administrative transition.
type Action string

const (
	ActionSend     Action = "send"
	ActionComplete Action = "complete"
)

func (a Action) target() (models.EstimateStatus, bool) {
	switch a {
	case ActionSend:
		return models.StatusSent, true
	case ActionComplete:
		return models.StatusCompleted, true
	}
	return "", false
}

// ResponseKind is the customer's answer to a sent estimate.
type ResponseKind string

const (
	ResponseApproved ResponseKind = "approved"
	ResponseDeclined ResponseKind = "declined"
	ResponseRevision ResponseKind = "revision"
)

type Response struct {
	Kind       ResponseKind           `json:"response"`
	Details    string                 `json:"revisionDetails,omitempty"`
	Structured map[string]interface{} `json:"structured,omitempty"`
}

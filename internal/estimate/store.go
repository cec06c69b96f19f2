// internal/estimate/store.go
package estimate

import (
	"context"

	"tour-estimate-workers/internal/models"
)

// Store persists sessions and estimates. Every mutating method is a single
// conditional write or a row-locked transaction.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*models.QuoteSession, error)
	GetEstimate(ctx context.Context, estimateID string) (*models.Estimate, error)

	// CreateForSession inserts est and attaches it to its session atomically.
	// It fails with ErrAlreadyAttached when the session already has an estimate.
	CreateForSession(ctx context.Context, est *models.Estimate) error

	// MarkSubmitted flips the session's isCompleted flag from false to true and
	// moves its estimate from draft to pending. flipped is false when another
	// caller already did.
	MarkSubmitted(ctx context.Context, sessionID string) (flipped bool, err error)

	// TransitionStatus moves the estimate to `to` if its status is one of from,
	// returning the status it had.
	TransitionStatus(ctx context.Context, estimateID string, from []models.EstimateStatus, to models.EstimateStatus) (models.EstimateStatus, error)

	// AppendRevision resets the estimate to pending and appends entry, if its
	// status is one of from. entry.PreviousStatus is filled in.
	AppendRevision(ctx context.Context, estimateID string, from []models.EstimateStatus, entry *models.RevisionEntry) error

	// LinkIdentity sets the session's user if unset or already equal.
	LinkIdentity(ctx context.Context, sessionID, userID string) error

	// UpdateItems locks the estimate, checks its status is one of allowed,
	// applies fn and saves the items.
	UpdateItems(ctx context.Context, estimateID string, allowed []models.EstimateStatus, fn func(*models.Estimate) error) (*models.Estimate, error)
}

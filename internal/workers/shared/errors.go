// Package shared holds the pieces every estimate and session worker needs:
// translating domain errors into the StandardError taxonomy.
package shared

import (
	stderrors "errors"

	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/generation"
)

// Ref carries the identifiers a job was working on, for error details.
type Ref struct {
	SessionID  string
	EstimateID string
	ItemID     string
	CatalogID  int64
	Operation  string
}

// ToStandardError maps domain sentinels to error codes. StandardErrors pass
// through; anything else is treated as a persistence failure, which is retried.
func ToStandardError(err error, ref Ref) *errors.StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := errors.AsStandardError(err); ok {
		return stdErr
	}

	var stdErr *errors.StandardError
	switch {
	case stderrors.Is(err, estimate.ErrSessionNotFound):
		stdErr = errors.NewSessionNotFoundError(ref.SessionID)
	case stderrors.Is(err, estimate.ErrEstimateNotFound):
		stdErr = errors.NewEstimateNotFoundError(estimateRef(ref))
	case stderrors.Is(err, estimate.ErrItemNotFound):
		stdErr = errors.NewItemNotFoundError(ref.EstimateID, ref.ItemID)
	case stderrors.Is(err, estimate.ErrCatalogEntryNotFound):
		stdErr = errors.NewCatalogEntryNotFoundError(ref.CatalogID)
	case stderrors.Is(err, estimate.ErrAlreadyAttached):
		stdErr = errors.NewEstimateAlreadyAttachedError(ref.SessionID)
	case stderrors.Is(err, estimate.ErrIdentityConflict):
		stdErr = errors.NewIdentityConflictError(ref.SessionID)
	case stderrors.Is(err, estimate.ErrStateConflict):
		stdErr = errors.NewStateConflictError(err.Error(), err)
	case stderrors.Is(err, estimate.ErrInvalidResponse):
		stdErr = errors.NewInvalidResponseError(err.Error())
	case stderrors.Is(err, estimate.ErrMissingIdentity):
		stdErr = errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, generation.ErrPersistenceFailed):
		stdErr = errors.NewPersistenceFailureError(operation(ref, "create estimate"), err)
	default:
		stdErr = errors.NewPersistenceFailureError(operation(ref, "estimate store"), err)
	}

	if ref.SessionID != "" {
		stdErr.WithMetadata("sessionId", ref.SessionID)
	}
	if ref.EstimateID != "" {
		stdErr.WithMetadata("estimateId", ref.EstimateID)
	}
	return stdErr
}

func estimateRef(ref Ref) string {
	if ref.EstimateID != "" {
		return "estimateId: " + ref.EstimateID
	}
	return "sessionId: " + ref.SessionID
}

func operation(ref Ref, fallback string) string {
	if ref.Operation != "" {
		return ref.Operation
	}
	return fallback
}

// internal/workers/shared/errors_test.go
package shared

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/generation"
)

func TestToStandardError(t *testing.T) {
	ref := Ref{SessionID: "sess-1", EstimateID: "est-1", ItemID: "item-1", CatalogID: 101}

	tests := []struct {
		name      string
		err       error
		code      errors.ErrorCode
		retryable bool
	}{
		{"session", estimate.ErrSessionNotFound, errors.ErrCodeSessionNotFound, false},
		{"estimate", fmt.Errorf("load: %w", estimate.ErrEstimateNotFound), errors.ErrCodeEstimateNotFound, false},
		{"item", estimate.ErrItemNotFound, errors.ErrCodeItemNotFound, false},
		{"catalog", estimate.ErrCatalogEntryNotFound, errors.ErrCodeCatalogEntryNotFound, false},
		{"attached", estimate.ErrAlreadyAttached, errors.ErrCodeEstimateAlreadyAttached, false},
		{"identity", estimate.ErrIdentityConflict, errors.ErrCodeIdentityConflict, false},
		{"state", estimate.ErrStateConflict, errors.ErrCodeStateConflict, false},
		{"response", estimate.ErrInvalidResponse, errors.ErrCodeInvalidResponse, false},
		{"missing identity", estimate.ErrMissingIdentity, errors.ErrCodeInvalidInput, false},
		{"generation write", fmt.Errorf("%w: %w", generation.ErrPersistenceFailed, stderrors.New("deadlock")), errors.ErrCodePersistenceFailure, true},
		{"unknown", stderrors.New("pq: connection reset"), errors.ErrCodePersistenceFailure, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := ToStandardError(tt.err, ref)
			require.NotNil(t, stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.Equal(t, "sess-1", stdErr.Metadata["sessionId"])
			assert.Equal(t, "est-1", stdErr.Metadata["estimateId"])
		})
	}
}

func TestToStandardError_PassesThroughStandardErrors(t *testing.T) {
	orig := errors.NewAuthenticationError("token expired")
	got := ToStandardError(fmt.Errorf("userinfo: %w", orig), Ref{SessionID: "sess-1"})
	assert.Same(t, orig, got)
	assert.Nil(t, ToStandardError(nil, Ref{}))
}

func TestToStandardError_Details(t *testing.T) {
	stdErr := ToStandardError(estimate.ErrEstimateNotFound, Ref{SessionID: "sess-9"})
	assert.Equal(t, "sessionId: sess-9", stdErr.Details)

	stdErr = ToStandardError(stderrors.New("timeout"), Ref{Operation: "remove item"})
	assert.Contains(t, stdErr.Details, "operation: remove item")
}

// internal/workers/estimate/respond-to-estimate/handler_test.go
package respondtoestimate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/models"
)

type fakeResponder struct {
	RespondFunc func(ctx context.Context, sessionID string, resp estimate.Response) (*estimate.RespondResult, error)
}

func (f *fakeResponder) Respond(ctx context.Context, sessionID string, resp estimate.Response) (*estimate.RespondResult, error) {
	return f.RespondFunc(ctx, sessionID, resp)
}

func newTestHandler(t *testing.T, svc Responder) *Handler {
	h, err := NewHandler(HandlerOptions{AppConfig: &config.Config{}, Service: svc, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_Revision(t *testing.T) {
	var got estimate.Response
	h := newTestHandler(t, &fakeResponder{RespondFunc: func(_ context.Context, sessionID string, resp estimate.Response) (*estimate.RespondResult, error) {
		got = resp
		return &estimate.RespondResult{EstimateID: "est-1", Status: models.StatusPending, RevisionID: "rev-1"}, nil
	}})

	out, err := h.execute(context.Background(), []byte(`{
		"sessionId": "sess-1",
		"response": "revision",
		"revisionDetails": "Swap day 2 for a DMZ tour",
		"structuredRevision": {"day": 2}
	}`))
	require.NoError(t, err)

	assert.Equal(t, estimate.ResponseRevision, got.Kind)
	assert.Equal(t, "Swap day 2 for a DMZ tour", got.Details)
	assert.Equal(t, float64(2), got.Structured["day"])

	res := out.(*Output)
	assert.Equal(t, "pending", res.EstimateStatus)
	assert.Equal(t, "rev-1", res.RevisionID)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"unsupported response", fmt.Errorf("%w: %q", estimate.ErrInvalidResponse, "maybe"), errors.ErrCodeInvalidResponse},
		{"approve while pending", fmt.Errorf("%w: estimate est-1 is pending", estimate.ErrStateConflict), errors.ErrCodeStateConflict},
		{"no estimate yet", estimate.ErrEstimateNotFound, errors.ErrCodeEstimateNotFound},
		{"unknown session", estimate.ErrSessionNotFound, errors.ErrCodeSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeResponder{RespondFunc: func(context.Context, string, estimate.Response) (*estimate.RespondResult, error) {
				return nil, tt.err
			}})
			_, err := h.Execute(context.Background(), &Input{SessionID: "sess-1", Response: "approved"})
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestHandler_RequiresResponse(t *testing.T) {
	h := newTestHandler(t, &fakeResponder{})
	_, err := h.execute(context.Background(), []byte(`{"sessionId":"sess-1"}`))
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
}

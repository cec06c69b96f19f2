// internal/workers/estimate/update-estimate-status/handler_test.go
package updateestimatestatus

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

type fakeTransitioner struct {
	TransitionFunc func(ctx context.Context, estimateID string, action estimate.Action) (*estimate.TransitionResult, error)
}

func (f *fakeTransitioner) Transition(ctx context.Context, estimateID string, action estimate.Action) (*estimate.TransitionResult, error) {
	return f.TransitionFunc(ctx, estimateID, action)
}

func newTestHandler(t *testing.T, svc Transitioner) *Handler {
	h, err := NewHandler(HandlerOptions{AppConfig: &config.Config{}, Service: svc, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_Send(t *testing.T) {
	h := newTestHandler(t, &fakeTransitioner{TransitionFunc: func(_ context.Context, id string, action estimate.Action) (*estimate.TransitionResult, error) {
		assert.Equal(t, estimate.ActionSend, action)
		return &estimate.TransitionResult{EstimateID: id, PreviousStatus: models.StatusPending, Status: models.StatusSent}, nil
	}})

	out, err := h.execute(context.Background(), []byte(`{"estimateId":"est-1","action":"send"}`))
	require.NoError(t, err)
	res := out.(*Output)
	assert.Equal(t, "pending", res.PreviousStatus)
	assert.Equal(t, "sent", res.EstimateStatus)
}

func TestHandler_RejectsUnknownAction(t *testing.T) {
	h := newTestHandler(t, &fakeTransitioner{})
	_, err := h.execute(context.Background(), []byte(`{"estimateId":"est-1","action":"archive"}`))
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
}

func TestHandler_Execute_Conflict(t *testing.T) {
	h := newTestHandler(t, &fakeTransitioner{TransitionFunc: func(context.Context, string, estimate.Action) (*estimate.TransitionResult, error) {
		return nil, fmt.Errorf("%w: estimate est-1 is draft", estimate.ErrStateConflict)
	}})

	_, err := h.Execute(context.Background(), &Input{EstimateID: "est-1", Action: "complete"})
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeStateConflict, stdErr.Code)
	assert.Contains(t, stdErr.Details, "draft")
	assert.Equal(t, "est-1", stdErr.Metadata["estimateId"])
}

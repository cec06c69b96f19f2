// internal/workers/session/link-session-identity/handler_test.go
package linksessionidentity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-estimate-workers/internal/common/auth"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/estimate"
)

type fakeLinker struct {
	LinkFunc func(ctx context.Context, sessionID, userID string) error
}

func (f *fakeLinker) LinkIdentity(ctx context.Context, sessionID, userID string) error {
	return f.LinkFunc(ctx, sessionID, userID)
}

type fakeIdentity struct {
	UserInfoFunc func(ctx context.Context, accessToken string) (*auth.UserInfo, error)
}

func (f *fakeIdentity) UserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error) {
	return f.UserInfoFunc(ctx, accessToken)
}

func newTestHandler(t *testing.T, svc Linker, idp IdentityProvider) *Handler {
	h, err := NewHandler(HandlerOptions{AppConfig: &config.Config{}, Service: svc, Identity: idp, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_WithAccessToken(t *testing.T) {
	var linked string
	h := newTestHandler(t,
		&fakeLinker{LinkFunc: func(_ context.Context, _ string, userID string) error {
			linked = userID
			return nil
		}},
		&fakeIdentity{UserInfoFunc: func(_ context.Context, token string) (*auth.UserInfo, error) {
			assert.Equal(t, "tok", token)
			return &auth.UserInfo{Subject: "kc-user-9", Email: "minji@example.com"}, nil
		}},
	)

	out, err := h.execute(context.Background(), []byte(`{"sessionId":"sess-1","accessToken":"tok","userId":"ignored"}`))
	require.NoError(t, err)
	res := out.(*Output)
	assert.Equal(t, "kc-user-9", linked)
	assert.Equal(t, "kc-user-9", res.UserID)
	assert.Equal(t, "minji@example.com", res.Email)
	assert.True(t, res.Linked)
}

func TestHandler_Execute_WithUserID(t *testing.T) {
	h := newTestHandler(t, &fakeLinker{LinkFunc: func(context.Context, string, string) error { return nil }}, nil)

	out, err := h.Execute(context.Background(), &Input{SessionID: "sess-1", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", out.UserID)
}

func TestHandler_RequiresTokenOrUser(t *testing.T) {
	h := newTestHandler(t, &fakeLinker{}, nil)
	_, err := h.execute(context.Background(), []byte(`{"sessionId":"sess-1"}`))
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		idpErr    error
		linkErr   error
		code      errors.ErrorCode
		retryable bool
	}{
		{name: "token rejected", idpErr: errors.NewAuthenticationError("status 401"), code: errors.ErrCodeAuthentication},
		{name: "keycloak down", idpErr: errors.NewUpstreamUnavailableError("keycloak", fmt.Errorf("dial tcp: refused")), code: errors.ErrCodeUpstreamUnavailable, retryable: true},
		{name: "other identity", linkErr: fmt.Errorf("%w: sess-1", estimate.ErrIdentityConflict), code: errors.ErrCodeIdentityConflict},
		{name: "unknown session", linkErr: estimate.ErrSessionNotFound, code: errors.ErrCodeSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t,
				&fakeLinker{LinkFunc: func(context.Context, string, string) error { return tt.linkErr }},
				&fakeIdentity{UserInfoFunc: func(context.Context, string) (*auth.UserInfo, error) {
					if tt.idpErr != nil {
						return nil, tt.idpErr
					}
					return &auth.UserInfo{Subject: "kc-user-9"}, nil
				}},
			)
			_, err := h.Execute(context.Background(), &Input{SessionID: "sess-1", AccessToken: "tok"})
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

// internal/workers/session/link-session-identity/handler.go
package linksessionidentity

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"tour-estimate-workers/internal/common/auth"
	"tour-estimate-workers/internal/common/camunda"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/observability"
	"tour-estimate-workers/internal/workers/shared"
)

const TaskType = "link-session-identity"

type Linker interface {
	LinkIdentity(ctx context.Context, sessionID, userID string) error
}

type IdentityProvider interface {
	UserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error)
}

type Handler struct {
	config   *Config
	service  Linker
	identity IdentityProvider
	runner   *camunda.JobRunner
	logger   logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Service       Linker
	Identity      IdentityProvider
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: estimate service is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	cfg := LoadConfig(opts.AppConfig)
	return &Handler{
		config:   cfg,
		service:  opts.Service,
		identity: opts.Identity,
		runner:   camunda.NewJobRunner(TaskType, cfg.Timeout, opts.Observability, log),
		logger:   log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, variables []byte) (interface{}, error) {
	var input Input
	if err := camunda.DecodeVariables(variables, inputSchema, &input); err != nil {
		return nil, err
	}
	return h.Execute(ctx, &input)
}

// Execute links the session to the caller. A token takes precedence over a
// supplied user id. Linking twice to the same user succeeds.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ref := shared.Ref{SessionID: input.SessionID, Operation: "link session identity"}
	out := &Output{SessionID: input.SessionID, UserID: input.UserID}

	if input.AccessToken != "" {
		if h.identity == nil {
			return nil, errors.NewInternalError(fmt.Errorf("no identity provider configured"))
		}
		info, err := h.identity.UserInfo(ctx, input.AccessToken)
		if err != nil {
			return nil, shared.ToStandardError(err, ref)
		}
		out.UserID = info.Subject
		out.Email = info.Email
	}

	if err := h.service.LinkIdentity(ctx, input.SessionID, out.UserID); err != nil {
		return nil, shared.ToStandardError(err, ref)
	}

	h.logger.Info("Session linked to identity", map[string]interface{}{
		"sessionId": input.SessionID,
		"userId":    out.UserID,
	})
	out.Linked = true
	return out, nil
}

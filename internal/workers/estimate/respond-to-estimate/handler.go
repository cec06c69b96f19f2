// internal/workers/estimate/respond-to-estimate/handler.go
package respondtoestimate

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"tour-estimate-workers/internal/common/camunda"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/observability"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/workers/shared"
)

const TaskType = "respond-to-estimate"

type Responder interface {
	Respond(ctx context.Context, sessionID string, resp estimate.Response) (*estimate.RespondResult, error)
}

type Handler struct {
	config  *Config
	service Responder
	runner  *camunda.JobRunner
	logger  logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Service       Responder
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
		config:  cfg,
		service: opts.Service,
		runner:  camunda.NewJobRunner(TaskType, cfg.Timeout, opts.Observability, log),
		logger:  log,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Respond(ctx, input.SessionID, estimate.Response{
		Kind:       estimate.ResponseKind(input.Response),
		Details:    input.RevisionDetails,
		Structured: input.Structured,
	})
	if err != nil {
		return nil, shared.ToStandardError(err, shared.Ref{SessionID: input.SessionID, Operation: "respond to estimate"})
	}

	h.logger.Info("Customer response applied", map[string]interface{}{
		"sessionId":  input.SessionID,
		"estimateId": res.EstimateID,
		"response":   input.Response,
		"status":     string(res.Status),
	})
	return &Output{
		EstimateID:          res.EstimateID,
		EstimateStatus:      string(res.Status),
		RevisionID:          res.RevisionID,
		NotificationWarning: res.NotificationWarning,
	}, nil
}

// internal/workers/estimate/generate-estimate/handler.go
package generateestimate

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"tour-estimate-workers/internal/common/camunda"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/observability"
	"tour-estimate-workers/internal/generation"
	"tour-estimate-workers/internal/workers/shared"
)

const TaskType = "generate-estimate"

type Generator interface {
	Generate(ctx context.Context, sessionID string) (*generation.Result, error)
}

type Handler struct {
	config    *Config
	generator Generator
	runner    *camunda.JobRunner
	logger    logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Generator     Generator
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("%s: generator is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	cfg := LoadConfig(opts.AppConfig)
	return &Handler{
		config:    cfg,
		generator: opts.Generator,
		runner:    camunda.NewJobRunner(TaskType, cfg.Timeout, opts.Observability, log),
		logger:    log,
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

// Execute generates the session's estimate. Retrieval problems never surface
// here; they are visible in generationSource.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.generator.Generate(ctx, input.SessionID)
	if err != nil {
		return nil, shared.ToStandardError(err, shared.Ref{SessionID: input.SessionID, Operation: "create estimate"})
	}

	if res.NotificationWarning {
		h.logger.Warn("Estimate generated with notification failures", map[string]interface{}{
			"sessionId":  input.SessionID,
			"estimateId": res.EstimateID,
		})
	}

	return &Output{
		EstimateID:          res.EstimateID,
		ShareToken:          res.ShareToken,
		GenerationSource:    string(res.Source),
		HasPlaceholders:     res.HasPlaceholders,
		ItemCount:           len(res.Items),
		ConfidenceScore:     res.ConfidenceScore,
		NotificationWarning: res.NotificationWarning,
	}, nil
}

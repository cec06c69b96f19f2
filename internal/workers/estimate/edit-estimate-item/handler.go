// internal/workers/estimate/edit-estimate-item/handler.go
package editestimateitem

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"tour-estimate-workers/internal/common/camunda"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/observability"
	"tour-estimate-workers/internal/models"
	"tour-estimate-workers/internal/workers/shared"
)

const TaskType = "edit-estimate-item"

type Editor interface {
	ResolvePlaceholder(ctx context.Context, estimateID, itemID string, catalogID int64) (*models.Estimate, error)
	RemoveItem(ctx context.Context, estimateID, itemID string) (*models.Estimate, error)
}

type Handler struct {
	config  *Config
	service Editor
	runner  *camunda.JobRunner
	logger  logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Service       Editor
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
	ref := shared.Ref{EstimateID: input.EstimateID, ItemID: input.ItemID, CatalogID: input.CatalogID}

	var (
		est *models.Estimate
		err error
	)
	switch input.Operation {
	case OperationResolve:
		ref.Operation = "resolve placeholder"
		est, err = h.service.ResolvePlaceholder(ctx, input.EstimateID, input.ItemID, input.CatalogID)
	case OperationRemove:
		ref.Operation = "remove item"
		est, err = h.service.RemoveItem(ctx, input.EstimateID, input.ItemID)
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unsupported operation %q", input.Operation))
	}
	if err != nil {
		return nil, shared.ToStandardError(err, ref)
	}

	h.logger.Info("Estimate item edited", map[string]interface{}{
		"estimateId": est.ID,
		"itemId":     input.ItemID,
		"operation":  input.Operation,
		"items":      len(est.Items),
	})
	return &Output{
		EstimateID:      est.ID,
		EstimateStatus:  string(est.Status),
		ItemCount:       len(est.Items),
		HasPlaceholders: est.HasPlaceholders(),
		Total:           est.Total(),
	}, nil
}

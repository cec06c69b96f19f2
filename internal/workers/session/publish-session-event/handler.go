// internal/workers/session/publish-session-event/handler.go
package publishsessionevent

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"tour-estimate-workers/internal/common/camunda"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/observability"
	"tour-estimate-workers/internal/sessionbus"
)

const TaskType = "publish-session-event"

type Publisher interface {
	Publish(sessionID, eventType string, payload interface{}) sessionbus.Event
}

type Handler struct {
	config *Config
	bus    Publisher
	runner *camunda.JobRunner
	logger logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Bus           Publisher
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("%s: session bus is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	cfg := LoadConfig(opts.AppConfig)
	return &Handler{
		config: cfg,
		bus:    opts.Bus,
		runner: camunda.NewJobRunner(TaskType, cfg.Timeout, opts.Observability, log),
		logger: log,
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

// Execute publishes to the session's live viewers and backlog. Publishing
// never fails; a session nobody watches still keeps the event for replay.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	e := h.bus.Publish(input.SessionID, input.EventType, input.Payload)

	h.logger.Debug("Session event published", map[string]interface{}{
		"sessionId": input.SessionID,
		"eventId":   e.ID,
		"eventType": e.Type,
	})
	return &Output{
		EventID:     e.ID,
		EventType:   e.Type,
		PublishedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

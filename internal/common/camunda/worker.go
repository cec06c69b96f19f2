// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/metrics"
	"tour-estimate-workers/internal/common/observability"
)

type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Executor runs one job against its raw variables document and returns the
// object completed into the process scope.
type Executor func(ctx context.Context, variables []byte) (interface{}, error)

var completeRetry = &RetryConfig{
	MaxRetries: 2,
	BaseDelay:  200 * time.Millisecond,
	MaxDelay:   time.Second,
}

// JobRunner owns the job envelope shared by every worker: timeout, metrics,
// completion and failure reporting through the ErrorHandler.
type JobRunner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	errors   *errors.ErrorHandler
	obs      *observability.Observability
}

func NewJobRunner(taskType string, timeout time.Duration, obs *observability.Observability, log logger.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JobRunner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
		obs:      obs,
	}
}

func (r *JobRunner) Run(client worker.JobClient, job entities.Job, exec Executor) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	log := r.logger.WithFields(map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})
	log.Info("Processing job", nil)

	out, err := exec(ctx, []byte(job.GetVariables()))
	if err != nil {
		stdErr := r.errors.HandleJobError(ctx, client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()
		r.record(ctx, start, "failed")
		return
	}

	err = executeWithRetry(ctx, completeRetry, func(ctx context.Context) error {
		cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(out)
		if err != nil {
			return err
		}
		_, err = cmd.Send(ctx)
		return err
	}, "complete job")
	if err != nil {
		log.Error("Failed to complete job", map[string]interface{}{"error": err.Error()})
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(errors.Normalize(err).Code)).Inc()
		r.record(ctx, start, "failed")
		return
	}

	log.Info("Job completed", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
	})
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(start).Seconds())
	r.record(ctx, start, "completed")
}

func (r *JobRunner) record(ctx context.Context, start time.Time, status string) {
	r.obs.RecordJobProcessed(ctx, r.taskType, status)
	r.obs.RecordJobDuration(ctx, r.taskType, time.Since(start), status)
}

// Worker is an open job subscription.
type Worker struct {
	taskType  string
	jobWorker worker.JobWorker
	logger    logger.Logger
}

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	if !wcfg.Enabled {
		log.Info("Worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name(taskType + "-worker").
		Open()

	log.Info("Worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return &Worker{taskType: taskType, jobWorker: jobWorker, logger: log}
}

// Stop closes the subscription and waits for in-flight handlers.
func (w *Worker) Stop() {
	if w == nil {
		return
	}
	w.logger.Info("Stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.jobWorker.Close()
	w.jobWorker.AwaitClose()
}

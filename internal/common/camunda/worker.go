// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"emi-decision-engine/internal/common/errors"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler reports whether the job failed so the worker can count it.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(client worker.JobClient, job entities.Job) error

func (f JobHandlerFunc) Handle(client worker.JobClient, job entities.Job) error {
	return f(client, job)
}

// JobRecorder receives per-job outcomes, e.g. the OTel meters.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
	RecordJobDuration(ctx context.Context, duration time.Duration, status string)
}

type WorkerConfig struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	Concurrency   int
	Recorder      JobRecorder
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// Instrument wraps a handler with the worker job metrics.
// recorder may be nil.
func Instrument(taskType string, handler JobHandler, recorder JobRecorder, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		err := handler.Handle(client, job)
		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())

		status := "completed"
		if err != nil {
			status = "failed"
			code := ErrorCode(err)
			metrics.WorkerJobsFailed.WithLabelValues(taskType, code).Inc()
			log.Error("handler returned error", map[string]interface{}{
				"jobKey":    job.Key,
				"errorCode": code,
				"error":     err.Error(),
			})
		} else {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}

		if recorder != nil {
			ctx := context.Background()
			recorder.RecordJobProcessed(ctx, status)
			recorder.RecordJobDuration(ctx, elapsed, status)
		}
	}
}

// ErrorCode is the metric label for a handler error.
func ErrorCode(err error) string {
	return string(errors.Normalize(err).Code)
}

func NewWorker(client zbc.Client, cfg WorkerConfig, handler JobHandler, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": cfg.TaskType})

	builder := client.NewJobWorker().
		JobType(cfg.TaskType).
		Handler(Instrument(cfg.TaskType, handler, cfg.Recorder, log)).
		MaxJobsActive(cfg.MaxJobsActive)
	if cfg.Timeout > 0 {
		builder = builder.Timeout(cfg.Timeout)
	}
	if cfg.Concurrency > 0 {
		builder = builder.Concurrency(cfg.Concurrency)
	}

	w := &CamundaWorker{
		worker:   builder.Open(),
		logger:   log,
		taskType: cfg.TaskType,
	}
	w.logger.Info("worker started", map[string]interface{}{"maxJobsActive": cfg.MaxJobsActive})
	return w
}

func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", nil)
	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop before shutdown deadline", nil)
	}
}

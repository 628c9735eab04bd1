// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-portal/internal/common/config"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// RunJob decodes the job variables into I, runs exec under timeout and either
// completes the job with the output or hands the error to the ErrorHandler.
func RunJob[I any, O any](
	client worker.JobClient,
	job entities.Job,
	log logger.Logger,
	timeout time.Duration,
	exec func(context.Context, *I) (*O, error),
) {
	log.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errHandler := apperrors.NewErrorHandler(log)
	started := time.Now()

	var input I
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.ObserveStep(job.Type, started, err)
		errHandler.HandleJobError(ctx, client, job, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := exec(ctx, &input)
	metrics.ObserveStep(job.Type, started, err)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(apperrors.CodeOf(err))).Inc()
		errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

// StartWorker opens a job worker for taskType unless it is disabled in wcfg.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc worker.JobHandler, log *zap.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return jw
}

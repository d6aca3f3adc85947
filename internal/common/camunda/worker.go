// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"cloudwise/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes, fails or throws on every job it is given.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Worker is one open job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens a subscription for taskType. The job timeout given to
// the broker is the worker timeout plus a margin so a handler's own deadline
// fires first.
func StartWorker(client zbc.Client, taskType string, maxJobs int, timeout time.Duration, handler JobHandler, log logger.Logger) *Worker {
	if maxJobs <= 0 {
		maxJobs = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		Name("cloudwise-" + taskType).
		MaxJobsActive(maxJobs).
		Timeout(timeout + 10*time.Second).
		Open()

	log.Info("Worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": maxJobs,
		"timeout":       timeout.String(),
	})
	return &Worker{worker: jobWorker, logger: log, taskType: taskType}
}

// Close stops polling and waits for in-flight jobs.
func (w *Worker) Close() {
	w.logger.Info("Stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}

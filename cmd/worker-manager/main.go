// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"cloudwise/internal/api"
	"cloudwise/internal/app"
	"cloudwise/internal/common/camunda"
	"cloudwise/internal/common/config"
	"cloudwise/internal/common/logger"
	"cloudwise/internal/service"
	"cloudwise/pkg/registry"

	ae "cloudwise/internal/workers/cloud-query/analyze-error"
	dc "cloudwise/internal/workers/cloud-query/dispatch-command"
	iq "cloudwise/internal/workers/cloud-query/interpret-query"
	oc "cloudwise/internal/workers/cloud-query/optimize-costs"
)

// jobWorker is what every cloud-query worker handler exposes to the manager.
type jobWorker interface {
	Register(client zbc.Client)
	Close()
	GetTaskType() string
	IsEnabled() bool
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting cloudwise worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("application bootstrap failed", zap.Error(err))
	}
	defer application.Close()

	checkRegistry(cfg, zapLog)

	ready := application.ReadyChecks()
	var workers []jobWorker

	if cfg.Camunda.Enabled {
		var zc *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zc, err = camunda.NewClient(ctx, cfg.Camunda)
			return err
		}, 5, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		zapLog.Info("Zeebe client connected", zap.String("broker", cfg.Camunda.BrokerAddress))
		ready = append(ready, zc.HealthCheck)

		workers, err = buildWorkers(cfg, application.Service, log)
		if err != nil {
			zapLog.Fatal("worker setup failed", zap.Error(err))
		}
		for _, w := range workers {
			w.Register(zc.GetClient())
		}
		zapLog.Info("Workers registered", zap.Int("count", countEnabled(workers)))
	} else {
		zapLog.Info("Camunda disabled, serving HTTP only")
	}

	server := api.NewServer(application.Service, log, ready...)
	err = server.ListenAndServe(ctx, cfg.Server.Address,
		config.GetDuration(cfg.Server.ReadTimeout),
		config.GetDuration(cfg.Server.WriteTimeout),
	)
	if err != nil {
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	zapLog.Info("Shutting down, stopping workers...")
	for _, w := range workers {
		w.Close()
	}
	zapLog.Info("Worker manager stopped gracefully")
}

func buildWorkers(cfg *config.Config, svc *service.Service, log logger.Logger) ([]jobWorker, error) {
	interpret, err := iq.NewHandler(iq.HandlerOptions{AppConfig: cfg, Service: svc, Logger: log})
	if err != nil {
		return nil, err
	}
	dispatch, err := dc.NewHandler(dc.HandlerOptions{AppConfig: cfg, Service: svc, Logger: log})
	if err != nil {
		return nil, err
	}
	analyze, err := ae.NewHandler(ae.HandlerOptions{AppConfig: cfg, Service: svc, Logger: log})
	if err != nil {
		return nil, err
	}
	optimize, err := oc.NewHandler(oc.HandlerOptions{AppConfig: cfg, Service: svc, Logger: log})
	if err != nil {
		return nil, err
	}
	return []jobWorker{interpret, dispatch, analyze, optimize}, nil
}

func countEnabled(workers []jobWorker) int {
	n := 0
	for _, w := range workers {
		if w.IsEnabled() {
			n++
		}
	}
	return n
}

// checkRegistry warns about registry problems; the registry documents the
// workers and never blocks startup.
func checkRegistry(cfg *config.Config, log *zap.Logger) {
	if cfg.Registry.Path == "" {
		return
	}
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		log.Warn("Activity registry unavailable", zap.String("path", cfg.Registry.Path), zap.Error(err))
		return
	}
	for _, problem := range reg.Validate() {
		log.Warn("Activity registry problem", zap.Error(problem))
	}
	for _, taskType := range []string{iq.TaskType, dc.TaskType, ae.TaskType, oc.TaskType} {
		if _, ok := reg.Find(taskType); !ok {
			log.Warn("Worker missing from activity registry", zap.String("taskType", taskType))
		}
	}
}

// cmd/emi-engine/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"emi-decision-engine/internal/api"
	"emi-decision-engine/internal/common/cache"
	"emi-decision-engine/internal/common/camunda"
	"emi-decision-engine/internal/common/config"
	"emi-decision-engine/internal/common/errors"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/common/observability"
	"emi-decision-engine/internal/decision"
	"emi-decision-engine/internal/modelregistry"
	eval "emi-decision-engine/internal/workers/emi/evaluate-emi-eligibility"
	"emi-decision-engine/pkg/registry"
)

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

// startupError classifies a model loading failure for the fatal log line.
func startupError(err error) *errors.StandardError {
	var unavailable *modelregistry.ModelUnavailableError
	var mismatch *modelregistry.SchemaMismatchError
	switch {
	case stderrors.As(err, &mismatch):
		return errors.NewSchemaMismatchError(mismatch.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewModelRegistryTimeoutError(err)
	case stderrors.As(err, &unavailable):
		return errors.NewModelUnavailableError(unavailable.Model, err)
	default:
		return errors.NewInternalError(err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console", "stdout")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting EMI decision engine...",
		zap.String("environment", cfg.App.Environment),
		zap.String("featureSchema", cfg.Models.FeatureSchema),
	)

	// --- Observability ---
	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	shutdownTracing, err := observability.SetupTracing(cfg.Tracing, cfg.App)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Model resolution cache (optional) ---
	var store cache.Store
	var redisClient *cache.RedisClient
	if cfg.Cache.Enabled {
		redisClient = cache.NewRedis(cfg.Cache.Redis)
		err = retryWithBackoff(func() error {
			return redisClient.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			// The cache only saves registry round trips; run without it.
			zapLog.Warn("redis unavailable, model cache disabled", zap.Error(err))
			redisClient.Close()
			redisClient = nil
		} else {
			store = redisClient
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Models ---
	registryClient := modelregistry.NewClient(cfg.Models.TrackingURI, config.GetDuration(cfg.Models.RegistryTimeout))
	resolver := modelregistry.NewResolver(registryClient, store, time.Duration(cfg.Cache.TTL)*time.Second, log)
	models, err := modelregistry.NewLoader(cfg.Models, resolver, log).Load(ctx)
	if err != nil {
		stdErr := startupError(err)
		zapLog.Fatal("model loading failed",
			zap.String("errorCode", string(stdErr.Code)),
			zap.String("message", stdErr.Message),
			zap.Error(err),
		)
	}
	zapLog.Info("Models loaded",
		zap.String("eligibility", models.Eligibility.Info.Reference),
		zap.String("eligibilityVersion", models.Eligibility.Info.Version),
		zap.String("emi", models.EMI.Info.Reference),
		zap.String("emiVersion", models.EMI.Info.Version),
	)

	orchestrator, err := decision.NewOrchestrator(models.Eligibility.Scorer, models.EMI.Scorer, log, decision.WithRecorder(obs))
	if err != nil {
		zapLog.Fatal("orchestrator init failed", zap.Error(err))
	}

	// --- Zeebe worker ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, eval.TaskType) {
		zeebe, err = camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
		})
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		validator, err := eval.NewInputValidator(registry.Default())
		if err != nil {
			zapLog.Fatal("activity registry invalid", zap.Error(err))
		}
		wc := config.GetWorkerConfig(cfg, eval.TaskType)
		handler := eval.NewHandler(eval.LoadConfig(cfg), orchestrator, models.Schema, validator, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerConfig{
			TaskType:      eval.TaskType,
			MaxJobsActive: wc.MaxJobsActive,
			Timeout:       config.GetDuration(wc.Timeout),
			Recorder:      obs,
		}, handler, log))
	} else {
		zapLog.Info("Zeebe worker disabled")
	}

	// --- HTTP API ---
	server := api.NewServer(cfg.Server, orchestrator, models.Schema, models, log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLog.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down meter provider", zap.Error(err))
	}

	zapLog.Info("EMI decision engine stopped")
}

// internal/workers/emi/evaluate-emi-eligibility/config.go
package evaluateemieligibility

import (
	"time"

	"emi-decision-engine/internal/common/config"
)

const (
	defaultJobTimeout     = 30 * time.Second
	defaultCommandTimeout = 5 * time.Second
)

type Config struct {
	// Timeout bounds one evaluation. It ends CommandTimeout before the job
	// lease does, so the outcome is always reported while the job is ours.
	Timeout time.Duration
	// CommandTimeout bounds the complete, fail and throw commands.
	CommandTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	jobTimeout := config.GetDuration(wc.Timeout)
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}

	commandTimeout := config.GetDuration(cfg.Camunda.RequestTimeout)
	if commandTimeout <= 0 {
		commandTimeout = defaultCommandTimeout
	}
	if commandTimeout > jobTimeout/2 {
		commandTimeout = jobTimeout / 2
	}

	return &Config{
		Timeout:        jobTimeout - commandTimeout,
		CommandTimeout: commandTimeout,
	}
}

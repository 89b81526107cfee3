// Package modelregistry resolves the eligibility and EMI models once per
// process and hands them to the decision layer as ready predictors.
package modelregistry

import (
	"context"
	"fmt"
	"time"

	"emi-decision-engine/internal/common/config"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/decision"
	"emi-decision-engine/internal/features"
	"emi-decision-engine/internal/scoring"
)

const (
	EligibilityModel = "eligibility"
	EMIModel         = "emi"
)

// Scorer is a predictor backed by a remote scoring server.
type Scorer interface {
	decision.Predictor
	Ping(ctx context.Context) error
}

// ScorerFactory builds the scorer for one configured model.
type ScorerFactory func(name string, cfg config.ModelConfig) (Scorer, error)

// Model is one loaded model.
type Model struct {
	Name   string
	Info   *ModelInfo
	Scorer Scorer
}

// Models is built once at startup and shared read-only afterwards.
type Models struct {
	Eligibility Model
	EMI         Model
	Schema      features.Schema
}

// Ready reports whether both scoring servers answer.
func (m *Models) Ready(ctx context.Context) error {
	for _, model := range []Model{m.Eligibility, m.EMI} {
		if err := model.Scorer.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

type Loader struct {
	cfg       config.ModelsConfig
	resolver  *Resolver
	newScorer ScorerFactory
	logger    logger.Logger
	sleep     func(context.Context, time.Duration) error
}

type LoaderOption func(*Loader)

func WithScorerFactory(f ScorerFactory) LoaderOption {
	return func(l *Loader) { l.newScorer = f }
}

func NewLoader(cfg config.ModelsConfig, resolver *Resolver, log logger.Logger, opts ...LoaderOption) *Loader {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	l := &Loader{
		cfg:      cfg,
		resolver: resolver,
		logger:   log.WithFields(map[string]interface{}{"component": "model-loader"}),
		sleep:    sleepContext,
	}
	l.newScorer = func(name string, mc config.ModelConfig) (Scorer, error) {
		return scoring.NewClient(scoring.Config{
			Name:    name,
			BaseURL: mc.ServingURL,
			Timeout: config.GetDuration(mc.Timeout),
		}, log)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves both models, checks their scoring servers and, when enabled,
// asserts the feature schema against each model's signature.
func (l *Loader) Load(ctx context.Context) (*Models, error) {
	schema, err := features.LookupSchema(l.cfg.FeatureSchema)
	if err != nil {
		return nil, err
	}

	eligibility, err := l.loadOne(ctx, EligibilityModel, l.cfg.Eligibility, schema)
	if err != nil {
		return nil, err
	}
	emi, err := l.loadOne(ctx, EMIModel, l.cfg.EMI, schema)
	if err != nil {
		return nil, err
	}

	return &Models{Eligibility: eligibility, EMI: emi, Schema: schema}, nil
}

func (l *Loader) loadOne(ctx context.Context, name string, mc config.ModelConfig, schema features.Schema) (Model, error) {
	ref, err := ParseReference(mc.Reference)
	if err != nil {
		return Model{}, &ModelUnavailableError{Model: name, Reference: mc.Reference, Err: err}
	}

	scorer, err := l.newScorer(name, mc)
	if err != nil {
		return Model{}, &ModelUnavailableError{Model: name, Reference: ref.Raw, Err: err}
	}

	var info *ModelInfo
	err = l.retry(ctx, name+" model resolution", func() error {
		var rerr error
		if info, rerr = l.resolver.Resolve(ctx, ref); rerr != nil {
			return rerr
		}
		return scorer.Ping(ctx)
	})
	if err != nil {
		return Model{}, &ModelUnavailableError{Model: name, Reference: ref.Raw, Err: err}
	}

	if l.cfg.EnforceSchema {
		if err := assertSchema(name, schema, info); err != nil {
			return Model{}, err
		}
	}

	fields := map[string]interface{}{
		"model":     name,
		"reference": ref.Raw,
		"source":    info.Source,
		"schema":    schema.Name,
	}
	if info.Version != "" {
		fields["version"] = info.Version
	}
	l.logger.Info("model loaded", fields)

	return Model{Name: name, Info: info, Scorer: scorer}, nil
}

func assertSchema(name string, schema features.Schema, info *ModelInfo) error {
	if info.Signature == nil {
		return &SchemaMismatchError{Model: name, Schema: schema.Name, Diffs: []string{ErrNoSignature.Error()}}
	}
	if diffs := Diff(schema, *info.Signature); len(diffs) > 0 {
		return &SchemaMismatchError{Model: name, Schema: schema.Name, Diffs: diffs}
	}
	return nil
}

// retry runs op with exponential backoff. Only used during startup.
func (l *Loader) retry(ctx context.Context, operationName string, op func() error) error {
	attempts := l.cfg.ResolveRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := config.GetDuration(l.cfg.RetryDelay)

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i < attempts-1 {
			l.logger.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxAttempts": attempts,
				"nextRetryIn": delay.String(),
			})
			if serr := l.sleep(ctx, delay); serr != nil {
				return serr
			}
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

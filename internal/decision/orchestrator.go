// Package decision runs the two-stage eligibility and maximum-EMI evaluation.
package decision

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/common/metrics"
	"emi-decision-engine/internal/features"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MinimumEMI floors the amount shown to an eligible applicant.
const MinimumEMI int64 = 500

// EligibleLabel is the classifier output that means "eligible".
const EligibleLabel = 1

const tracerName = "emi-decision-engine/decision"

// rawEMILimit is 2^63, the first float64 an int64 amount cannot hold.
const rawEMILimit = float64(1 << 63)

// Predictor is a loaded model. Implementations must be safe for concurrent
// use and must not mutate the record.
type Predictor interface {
	Predict(ctx context.Context, record features.Record) ([]float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, record features.Record) ([]float64, error)

func (f PredictorFunc) Predict(ctx context.Context, record features.Record) ([]float64, error) {
	return f(ctx, record)
}

// Recorder receives one observation per completed or failed evaluation.
type Recorder interface {
	RecordEvaluation(ctx context.Context, outcome string, duration time.Duration)
}

type Orchestrator struct {
	eligibility Predictor
	emi         Predictor
	logger      logger.Logger
	recorder    Recorder
	tracer      trace.Tracer
	newID       func() string
}

type Option func(*Orchestrator)

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// NewOrchestrator wires the two models. Both are required.
func NewOrchestrator(eligibility, emi Predictor, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if eligibility == nil || emi == nil {
		return nil, errors.New("decision: eligibility and emi predictors are required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	o := &Orchestrator{
		eligibility: eligibility,
		emi:         emi,
		logger:      log.WithFields(map[string]interface{}{"component": "decision"}),
		tracer:      otel.Tracer(tracerName),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Evaluate runs the eligibility check and, only for eligible applicants, the
// amount estimation. Any model failure aborts the evaluation.
func (o *Orchestrator) Evaluate(ctx context.Context, record features.Record) (*Result, error) {
	start := time.Now()
	id := o.newID()
	schema := record.Schema().Name

	ctx, span := o.tracer.Start(ctx, "decision.Evaluate", trace.WithAttributes(
		attribute.String("evaluation.id", id),
		attribute.String("feature.schema", schema),
	))
	defer span.End()

	log := o.logger.WithFields(map[string]interface{}{"evaluationId": id})
	log.Debug("evaluation started", map[string]interface{}{"features": record.Map()})

	eligible, err := o.checkEligibility(ctx, record)
	if err != nil {
		return nil, o.fail(ctx, span, log, start, err)
	}

	if !eligible {
		result := declined(id, schema)
		result.Duration = time.Since(start)
		o.complete(ctx, span, log, result)
		return result, nil
	}

	amount, raw, err := o.estimateAmount(ctx, record)
	if err != nil {
		return nil, o.fail(ctx, span, log, start, err)
	}

	result := approved(id, schema, amount, raw)
	result.Duration = time.Since(start)
	o.complete(ctx, span, log, result)
	return result, nil
}

func (o *Orchestrator) checkEligibility(ctx context.Context, record features.Record) (bool, error) {
	out, err := o.eligibility.Predict(ctx, record)
	if err != nil {
		return false, &InferenceError{Stage: StageEligibility, Err: err}
	}
	if len(out) == 0 {
		return false, &InferenceError{Stage: StageEligibility, Err: fmt.Errorf("%w: empty prediction", ErrMalformedOutput)}
	}
	return out[0] == EligibleLabel, nil
}

func (o *Orchestrator) estimateAmount(ctx context.Context, record features.Record) (int64, float64, error) {
	out, err := o.emi.Predict(ctx, record)
	if err != nil {
		return 0, 0, &InferenceError{Stage: StageEMI, Err: err}
	}
	if len(out) == 0 {
		return 0, 0, &InferenceError{Stage: StageEMI, Err: fmt.Errorf("%w: empty prediction", ErrMalformedOutput)}
	}
	raw := out[0]
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, 0, &InferenceError{Stage: StageEMI, Err: fmt.Errorf("%w: non-finite amount %v", ErrMalformedOutput, raw)}
	}
	if raw >= rawEMILimit || raw < -rawEMILimit {
		return 0, 0, &InferenceError{Stage: StageEMI, Err: fmt.Errorf("%w: amount %g out of range", ErrMalformedOutput, raw)}
	}
	return FloorEMI(raw), raw, nil
}

// FloorEMI rounds half to even and applies the MinimumEMI floor.
// raw must be finite and below 2^63.
func FloorEMI(raw float64) int64 {
	rounded := math.RoundToEven(raw)
	if rounded < float64(MinimumEMI) {
		return MinimumEMI
	}
	return int64(rounded)
}

func (o *Orchestrator) complete(ctx context.Context, span trace.Span, log logger.Logger, result *Result) {
	fields := map[string]interface{}{
		"outcome":    result.Outcome.String(),
		"durationMs": result.Duration.Milliseconds(),
	}
	if amount, ok := result.MaxEMI(); ok {
		fields["maxEmiAmount"] = amount
		fields["rawEmi"] = result.RawEMI()
		metrics.MaxEMIAmount.Observe(float64(amount))
		span.SetAttributes(attribute.Int64("emi.max_amount", amount))
	}
	span.SetAttributes(attribute.String("evaluation.outcome", result.Outcome.String()))
	log.Info("evaluation completed", fields)

	metrics.EvaluationsTotal.WithLabelValues(result.Outcome.String()).Inc()
	metrics.EvaluationDuration.Observe(result.Duration.Seconds())
	if o.recorder != nil {
		o.recorder.RecordEvaluation(ctx, result.Outcome.String(), result.Duration)
	}
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, log logger.Logger, start time.Time, err error) error {
	stage, _ := StageOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("evaluation failed", map[string]interface{}{
		"stage": string(stage),
		"error": err.Error(),
	})

	metrics.EvaluationFailures.WithLabelValues(string(stage)).Inc()
	if o.recorder != nil {
		o.recorder.RecordEvaluation(ctx, "failed", time.Since(start))
	}
	return err
}

// internal/workers/emi/evaluate-emi-eligibility/handler.go
package evaluateemieligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"emi-decision-engine/internal/common/errors"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/common/validation"
	"emi-decision-engine/internal/decision"
	"emi-decision-engine/internal/features"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evaluate-emi-eligibility"
)

// Evaluator is satisfied by *decision.Orchestrator.
type Evaluator interface {
	Evaluate(ctx context.Context, record features.Record) (*decision.Result, error)
}

type Handler struct {
	config       *Config
	evaluator    Evaluator
	schema       features.Schema
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, evaluator Evaluator, schema features.Schema, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		evaluator:    evaluator,
		schema:       schema,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		perr := errors.NewParseError(err)
		h.reportError(client, job, perr)
		return perr
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.reportError(client, job, err)
		return err
	}

	cmdCtx, cmdCancel := h.commandContext()
	defer cmdCancel()
	return h.completeJob(cmdCtx, client, job, output)
}

// commandContext is independent of the evaluation deadline so a timed-out
// evaluation can still fail its job instead of waiting out the lease.
func (h *Handler) commandContext() (context.Context, context.CancelFunc) {
	timeout := h.config.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (h *Handler) reportError(client worker.JobClient, job entities.Job, err error) {
	ctx, cancel := h.commandContext()
	defer cancel()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// Execute validates the applicant, builds the record and evaluates it.
// Returned errors are always *errors.StandardError.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	applicant, err := h.decodeApplicant(input.Applicant)
	if err != nil {
		return nil, err
	}

	record := h.schema.Build(applicant)
	result, err := h.evaluator.Evaluate(ctx, record)
	if err != nil {
		if stage, ok := decision.StageOf(err); ok {
			return nil, errors.NewInferenceFailedError(string(stage), err).
				WithMetadata("applicationId", input.ApplicationID)
		}
		return nil, errors.NewInternalError(err)
	}

	output := &Output{
		EvaluationID:  result.EvaluationID,
		ApplicationID: input.ApplicationID,
		IsEligible:    result.IsEligible(),
		Decision:      result.Outcome.String(),
		FeatureSchema: result.Schema,
	}
	if amount, ok := result.MaxEMI(); ok {
		output.MaxEMIAmount = &amount
	}

	h.logger.Info("applicant evaluated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"evaluationId":  output.EvaluationID,
		"decision":      output.Decision,
	})
	return output, nil
}

func (h *Handler) decodeApplicant(raw json.RawMessage) (features.ApplicantInput, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return features.ApplicantInput{}, errors.NewApplicantValidationFailedError("applicant is required")
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return features.ApplicantInput{}, errors.NewParseError(err)
	}

	result, err := h.validator.Validate(map[string]interface{}{"applicant": doc})
	if err != nil {
		return features.ApplicantInput{}, errors.NewInternalError(err)
	}
	if !result.Valid {
		fields := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			fields = append(fields, e.Field)
		}
		return features.ApplicantInput{}, errors.NewApplicantValidationFailedError(
			strings.Join(result.GetErrorMessages(), "; "),
		).WithMetadata("invalidFields", fields)
	}

	var form features.ApplicantForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return features.ApplicantInput{}, errors.NewParseError(err)
	}
	applicant, err := form.ToInput()
	if err != nil {
		return features.ApplicantInput{}, errors.NewApplicantValidationFailedError(err.Error())
	}
	return applicant, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return fmt.Errorf("create complete command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return fmt.Errorf("send complete command: %w", err)
	}
	return nil
}

package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"emi-decision-engine/internal/common/errors"
	"emi-decision-engine/internal/common/validation"
	"emi-decision-engine/internal/decision"
	"emi-decision-engine/internal/features"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const errorEvaluationFailed = "EVALUATION_FAILED"

type EvaluateResponse struct {
	EvaluationID  string `json:"evaluationId"`
	IsEligible    bool   `json:"isEligible"`
	Decision      string `json:"decision"`
	MaxEMIAmount  *int64 `json:"maxEmiAmount,omitempty"`
	MaxEMIDisplay string `json:"maxEmiDisplay,omitempty"`
	Message       string `json:"message"`
	Note          string `json:"note,omitempty"`
	FeatureSchema string `json:"featureSchema"`
}

type ErrorResponse struct {
	Error     string                       `json:"error"`
	Message   string                       `json:"message"`
	Stage     string                       `json:"stage,omitempty"`
	Fields    []validation.ValidationError `json:"fields,omitempty"`
	RequestID string                       `json:"requestId,omitempty"`
}

type SchemaResponse struct {
	Name    string         `json:"name"`
	Columns []SchemaColumn `json:"columns"`
}

type SchemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) evaluate(c *gin.Context) {
	var form features.ApplicantForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, s.bindingError(c, err))
		return
	}

	applicant, err := form.ToInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     string(errors.ErrCodeApplicantValidationFailed),
			Message:   err.Error(),
			RequestID: c.GetString(requestIDKey),
		})
		return
	}

	result, err := s.evaluator.Evaluate(c.Request.Context(), s.schema.Build(applicant))
	if err != nil {
		resp := ErrorResponse{
			Error:     errorEvaluationFailed,
			Message:   "The applicant could not be evaluated. No decision was made.",
			RequestID: c.GetString(requestIDKey),
		}
		status := http.StatusBadGateway
		if stage, ok := decision.StageOf(err); ok {
			resp.Stage = string(stage)
		} else {
			status = http.StatusInternalServerError
			resp.Error = string(errors.ErrCodeInternal)
		}
		s.logger.Error("evaluation failed", map[string]interface{}{
			"requestId": resp.RequestID,
			"stage":     resp.Stage,
			"error":     err.Error(),
		})
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, newEvaluateResponse(result))
}

func newEvaluateResponse(result *decision.Result) EvaluateResponse {
	resp := EvaluateResponse{
		EvaluationID:  result.EvaluationID,
		IsEligible:    result.IsEligible(),
		Decision:      result.Outcome.String(),
		FeatureSchema: result.Schema,
	}
	if amount, ok := result.MaxEMI(); ok {
		resp.MaxEMIAmount = &amount
		resp.MaxEMIDisplay = FormatRupees(amount)
		resp.Message = MessageEligible
		return resp
	}
	resp.Message = MessageNotEligible
	resp.Note = NoteEMISkipped
	return resp
}

func (s *Server) bindingError(c *gin.Context, err error) ErrorResponse {
	resp := ErrorResponse{
		Error:     string(errors.ErrCodeApplicantValidationFailed),
		Message:   "Applicant data validation failed",
		RequestID: c.GetString(requestIDKey),
	}

	var verrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &verrs):
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, validation.ValidationError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Code:    fe.Tag(),
			})
		}
	case stderrors.As(err, &typeErr):
		resp.Fields = []validation.ValidationError{{
			Field:   typeErr.Field,
			Message: "must be a " + typeErr.Type.String(),
			Code:    "type",
		}}
	case stderrors.As(err, &syntaxErr):
		resp.Error = string(errors.ErrCodeParseError)
		resp.Message = "Request body is not valid JSON"
	default:
		resp.Error = string(errors.ErrCodeParseError)
		resp.Message = err.Error()
	}
	return resp
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func (s *Server) featureSchema(c *gin.Context) {
	resp := SchemaResponse{Name: s.schema.Name}
	for _, col := range s.schema.Columns() {
		resp.Columns = append(resp.Columns, SchemaColumn{Name: col.Name, Type: col.Kind.String()})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := s.readiness.Ready(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "featureSchema": s.schema.Name})
}

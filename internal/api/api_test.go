package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"emi-decision-engine/internal/common/config"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/decision"
	"emi-decision-engine/internal/features"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type readiness struct{ err error }

func (r readiness) Ready(context.Context) error { return r.err }

func constant(v float64) decision.Predictor {
	return decision.PredictorFunc(func(context.Context, features.Record) ([]float64, error) {
		return []float64{v}, nil
	})
}

func failing(err error) decision.Predictor {
	return decision.PredictorFunc(func(context.Context, features.Record) ([]float64, error) {
		return nil, err
	})
}

func createTestServer(t *testing.T, elig, emi decision.Predictor, ready error) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewTestLogger(t)
	orch, err := decision.NewOrchestrator(elig, emi, log, decision.WithIDGenerator(func() string { return "eval-1" }))
	require.NoError(t, err)

	schema, err := features.LookupSchema(features.SchemaV2)
	require.NoError(t, err)

	return NewServer(config.ServerConfig{Address: ":0", Mode: gin.TestMode}, orch, schema, readiness{err: ready}, log)
}

func createTestApplicant() map[string]interface{} {
	return map[string]interface{}{
		"age":                   35,
		"monthlySalary":         80000,
		"yearsOfEmployment":     6.0,
		"dependents":            1,
		"existingLoans":         0,
		"creditScore":           750,
		"requestedAmount":       300000,
		"requestedTenureMonths": 36,
		"monthlyExpenses":       25000,
		"emergencyFund":         150000,
		"educationLevel":        2,
		"employmentType":        1,
		"companyType":           3,
		"houseType":             0,
	}
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// ==========================
// Evaluate Endpoint Tests
// ==========================

func TestEvaluate_Eligible(t *testing.T) {
	s := createTestServer(t, constant(1), constant(18234.7), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/emi/evaluate", createTestApplicant())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "eval-1", resp.EvaluationID)
	assert.True(t, resp.IsEligible)
	assert.Equal(t, "eligible", resp.Decision)
	require.NotNil(t, resp.MaxEMIAmount)
	assert.Equal(t, int64(18235), *resp.MaxEMIAmount)
	assert.Equal(t, "₹ 18,235", resp.MaxEMIDisplay)
	assert.Equal(t, MessageEligible, resp.Message)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestEvaluate_Declined(t *testing.T) {
	s := createTestServer(t, constant(0), failing(stderrors.New("must not run")), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/emi/evaluate", createTestApplicant())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["isEligible"])
	assert.Equal(t, MessageNotEligible, body["message"])
	assert.Equal(t, NoteEMISkipped, body["note"])
	assert.NotContains(t, body, "maxEmiAmount")
	assert.NotContains(t, body, "maxEmiDisplay")
}

func TestEvaluate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a map[string]interface{})
		field  string
		code   string
	}{
		{"age too low", func(a map[string]interface{}) { a["age"] = 17 }, "age", "min"},
		{"salary too high", func(a map[string]interface{}) { a["monthlySalary"] = 500001 }, "monthlySalary", "max"},
		{"missing credit score", func(a map[string]interface{}) { delete(a, "creditScore") }, "creditScore", "required"},
		{"existing loans out of set", func(a map[string]interface{}) { a["existingLoans"] = 3 }, "existingLoans", "oneof"},
		{"fractional age", func(a map[string]interface{}) { a["age"] = 35.5 }, "age", "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestServer(t, constant(1), constant(1000), nil)
			applicant := createTestApplicant()
			tt.mutate(applicant)

			rec := doJSON(t, s, http.MethodPost, "/api/v1/emi/evaluate", applicant)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "APPLICANT_VALIDATION_FAILED", resp.Error)
			require.NotEmpty(t, resp.Fields)
			assert.Equal(t, tt.field, resp.Fields[0].Field)
			assert.Equal(t, tt.code, resp.Fields[0].Code)
		})
	}
}

func TestEvaluate_ZeroValuesAreNotMissing(t *testing.T) {
	s := createTestServer(t, constant(0), constant(0), nil)
	applicant := createTestApplicant()
	applicant["dependents"] = 0
	applicant["monthlyExpenses"] = 0
	applicant["emergencyFund"] = 0
	applicant["yearsOfEmployment"] = 0

	rec := doJSON(t, s, http.MethodPost, "/api/v1/emi/evaluate", applicant)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEvaluate_MalformedJSON(t *testing.T) {
	s := createTestServer(t, constant(1), constant(1000), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/emi/evaluate", `{"age": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PARSE_ERROR")
}

func TestEvaluate_InferenceFailure(t *testing.T) {
	s := createTestServer(t, constant(1), failing(stderrors.New("scoring server returned 500")), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/emi/evaluate", createTestApplicant())
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "EVALUATION_FAILED", body["error"])
	assert.Equal(t, "emi", body["stage"])
	assert.NotContains(t, body, "isEligible")
	assert.NotContains(t, body, "maxEmiAmount")
}

// ==========================
// Auxiliary Endpoint Tests
// ==========================

func TestSchemaEndpoint(t *testing.T) {
	s := createTestServer(t, constant(1), constant(1000), nil)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/emi/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, features.SchemaV2, resp.Name)
	require.Len(t, resp.Columns, 17)
	assert.Equal(t, "age", resp.Columns[0].Name)
	assert.Equal(t, "disposable_funds", resp.Columns[16].Name)
}

func TestReadyEndpoint(t *testing.T) {
	ok := createTestServer(t, constant(1), constant(1000), nil)
	assert.Equal(t, http.StatusOK, doJSON(t, ok, http.MethodGet, "/ready", nil).Code)

	down := createTestServer(t, constant(1), constant(1000), stderrors.New("ping failed"))
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, down, http.MethodGet, "/ready", nil).Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s := createTestServer(t, constant(1), constant(1000), nil)
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/health", nil).Code)

	rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := createTestServer(t, constant(1), constant(1000), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹ 500", FormatRupees(500))
	assert.Equal(t, "₹ 18,235", FormatRupees(18235))
	assert.Equal(t, "₹ 1,250,000", FormatRupees(1250000))
}

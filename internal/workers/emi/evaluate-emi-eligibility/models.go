// internal/workers/emi/evaluate-emi-eligibility/models.go
package evaluateemieligibility

import "encoding/json"

// Input keeps the applicant raw so it can be checked against the JSON schema
// before it is decoded into a form.
type Input struct {
	ApplicationID string          `json:"applicationId"`
	Applicant     json.RawMessage `json:"applicant"`
}

type Output struct {
	EvaluationID  string `json:"evaluationId"`
	ApplicationID string `json:"applicationId,omitempty"`
	IsEligible    bool   `json:"isEligible"`
	Decision      string `json:"decision"`
	MaxEMIAmount  *int64 `json:"maxEmiAmount,omitempty"`
	FeatureSchema string `json:"featureSchema"`
}

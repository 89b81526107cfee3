package decision

import (
	"encoding/json"
	"time"
)

// Outcome is the terminal state of an evaluation.
type Outcome int

const (
	Declined Outcome = iota
	Eligible
)

func (o Outcome) String() string {
	switch o {
	case Eligible:
		return "eligible"
	default:
		return "declined"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Result is produced and consumed within one evaluation.
type Result struct {
	EvaluationID string
	Outcome      Outcome
	Schema       string
	Duration     time.Duration

	maxEMI int64
	rawEMI float64
}

func declined(id, schema string) *Result {
	return &Result{EvaluationID: id, Outcome: Declined, Schema: schema}
}

func approved(id, schema string, amount int64, raw float64) *Result {
	return &Result{EvaluationID: id, Outcome: Eligible, Schema: schema, maxEMI: amount, rawEMI: raw}
}

func (r *Result) IsEligible() bool { return r.Outcome == Eligible }

// MaxEMI is present only for eligible applicants.
func (r *Result) MaxEMI() (int64, bool) {
	if r.Outcome != Eligible {
		return 0, false
	}
	return r.maxEMI, true
}

// RawEMI is the regressor's unrounded output, kept for logging.
func (r *Result) RawEMI() float64 { return r.rawEMI }

func (r *Result) MarshalJSON() ([]byte, error) {
	out := struct {
		EvaluationID string  `json:"evaluationId"`
		Outcome      Outcome `json:"decision"`
		IsEligible   bool    `json:"isEligible"`
		MaxEMIAmount *int64  `json:"maxEmiAmount,omitempty"`
		Schema       string  `json:"featureSchema"`
	}{
		EvaluationID: r.EvaluationID,
		Outcome:      r.Outcome,
		IsEligible:   r.IsEligible(),
		Schema:       r.Schema,
	}
	if amount, ok := r.MaxEMI(); ok {
		out.MaxEMIAmount = &amount
	}
	return json.Marshal(out)
}

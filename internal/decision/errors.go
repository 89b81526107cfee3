package decision

import (
	"errors"
	"fmt"
)

// Stage names the model call an evaluation was in when it failed.
type Stage string

const (
	StageEligibility Stage = "eligibility"
	StageEMI         Stage = "emi"
)

var (
	// ErrInference matches every InferenceError via errors.Is.
	ErrInference = errors.New("inference failed")
	// ErrMalformedOutput is the cause when a model answers with nothing usable.
	ErrMalformedOutput = errors.New("malformed model output")
)

// InferenceError aborts a single evaluation. No partial result accompanies it.
type InferenceError struct {
	Stage Stage
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s model inference failed: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// StageOf reports the failing stage of err, if it is an InferenceError.
func StageOf(err error) (Stage, bool) {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie.Stage, true
	}
	return "", false
}

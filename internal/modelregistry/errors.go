package modelregistry

import (
	"fmt"
	"strings"
)

// ModelUnavailableError means a model could not be resolved or its scoring
// server is unreachable. It is fatal at startup.
type ModelUnavailableError struct {
	Model     string
	Reference string
	Err       error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %s (%s) unavailable: %v", e.Model, e.Reference, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// SchemaMismatchError means the active feature schema disagrees with what a
// model was trained on.
type SchemaMismatchError struct {
	Model  string
	Schema string
	Diffs  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("model %s does not accept feature schema %s: %s", e.Model, e.Schema, strings.Join(e.Diffs, "; "))
}

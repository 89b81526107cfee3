// internal/workers/emi/evaluate-emi-eligibility/validation.go
package evaluateemieligibility

import (
	"fmt"

	"emi-decision-engine/internal/common/validation"
	"emi-decision-engine/pkg/registry"
)

// NewInputValidator compiles the activity's input schema from the registry.
func NewInputValidator(reg *registry.ActivityRegistry) (*validation.Validator, error) {
	activity, ok := reg.Find(TaskType)
	if !ok {
		return nil, fmt.Errorf("activity registry has no entry for task type %s", TaskType)
	}
	if len(activity.InputSchema) == 0 {
		return nil, fmt.Errorf("activity %s declares no input schema", activity.ID)
	}
	return validation.Compile(activity.InputSchema)
}

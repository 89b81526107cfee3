package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())

	activity, ok := reg.Find("evaluate-emi-eligibility")
	require.True(t, ok)
	assert.Equal(t, "emi.eligibility.evaluate", activity.ID)
	assert.Equal(t, 0, activity.Retries)
	assert.Contains(t, activity.ErrorCodes, "INFERENCE_FAILED")
	assert.NotEmpty(t, activity.InputSchema)
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Activities[0].TaskType = "changed"

	b := Default()
	_, ok := b.Find("evaluate-emi-eligibility")
	assert.True(t, ok)
}

func TestFind_Unknown(t *testing.T) {
	_, ok := Default().Find("does-not-exist")
	assert.False(t, ok)
}

func TestValidate_Failures(t *testing.T) {
	valid := func() Activity {
		return Activity{ID: "emi.eligibility.evaluate", DisplayName: "x", TaskType: "t", Category: "emi", Timeout: "30s"}
	}

	tests := []struct {
		name   string
		mutate func(r *ActivityRegistry)
		errMsg string
	}{
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"bad naming", func(r *ActivityRegistry) { r.Activities[0].ID = "EvaluateEMI" }, "domain.subdomain.action"},
		{"missing display name", func(r *ActivityRegistry) { r.Activities[0].DisplayName = "" }, "DisplayName"},
		{"bad timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" }, "invalid timeout"},
		{"duplicate id", func(r *ActivityRegistry) { r.Activities = append(r.Activities, r.Activities[0]) }, "duplicate activity ID"},
		{"broken schema", func(r *ActivityRegistry) {
			r.Activities[0].InputSchema = json.RawMessage(`{"type": 12}`)
		}, "inputSchema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{valid()}}
			tt.mutate(reg)
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadRegistry_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, defaultRegistry, 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Activities, 1)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{"))
	assert.Error(t, err)
}

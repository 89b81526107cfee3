package modelregistry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"emi-decision-engine/internal/features"

	"gopkg.in/yaml.v3"
)

// MLmodelFile is the model descriptor file name inside every MLflow model directory.
const MLmodelFile = "MLmodel"

var ErrNoSignature = errors.New("model has no input signature")

// SignatureColumn is one entry of an MLflow column-based input signature.
type SignatureColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Signature struct {
	Inputs []SignatureColumn `json:"inputs"`
}

func (s Signature) ColumnNames() []string {
	names := make([]string, len(s.Inputs))
	for i, c := range s.Inputs {
		names[i] = c.Name
	}
	return names
}

// mlmodel holds the parts of the descriptor the engine reads.
type mlmodel struct {
	ArtifactPath string `yaml:"artifact_path"`
	RunID        string `yaml:"run_id"`
	Signature    *struct {
		Inputs  string `yaml:"inputs"`
		Outputs string `yaml:"outputs"`
	} `yaml:"signature"`
}

// ParseMLmodel reads the input signature from an MLmodel YAML document.
// The signature's inputs field is itself a JSON document.
func ParseMLmodel(data []byte) (Signature, error) {
	var m mlmodel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Signature{}, fmt.Errorf("parse %s: %w", MLmodelFile, err)
	}
	if m.Signature == nil || m.Signature.Inputs == "" {
		return Signature{}, ErrNoSignature
	}

	var cols []SignatureColumn
	if err := json.Unmarshal([]byte(m.Signature.Inputs), &cols); err != nil {
		return Signature{}, fmt.Errorf("parse signature inputs: %w", err)
	}
	if len(cols) == 0 {
		return Signature{}, ErrNoSignature
	}
	return Signature{Inputs: cols}, nil
}

// Diff lists positional disagreements between a feature schema and a signature,
// by column name and by encoding. An empty result means they match column for column.
func Diff(schema features.Schema, sig Signature) []string {
	want := schema.Columns()
	got := sig.Inputs

	var diffs []string
	n := len(want)
	if len(got) > n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(want):
			diffs = append(diffs, fmt.Sprintf("position %d: unexpected model column %q", i, got[i].Name))
		case i >= len(got):
			diffs = append(diffs, fmt.Sprintf("position %d: model lacks column %q", i, want[i].Name))
		case want[i].Name != got[i].Name:
			diffs = append(diffs, fmt.Sprintf("position %d: schema has %q, model expects %q", i, want[i].Name, got[i].Name))
		case !typeMatches(want[i].Kind, got[i].Type):
			diffs = append(diffs, fmt.Sprintf("position %d: column %q is %s in the schema, model expects %q",
				i, want[i].Name, want[i].Kind, got[i].Type))
		}
	}
	return diffs
}

// typeMatches accepts both widths MLflow uses for each numeric family.
func typeMatches(kind features.Kind, typ string) bool {
	switch strings.ToLower(typ) {
	case "long", "integer":
		return kind == features.Integer
	case "double", "float":
		return kind == features.Real
	default:
		return false
	}
}

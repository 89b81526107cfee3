// internal/features/record.go
package features

import (
	"encoding/json"
	"math"
)

// Record is one evaluation's feature row. It is immutable once built.
type Record struct {
	schema Schema
	values []float64
}

func (r Record) Schema() Schema { return r.schema }

func (r Record) Len() int { return len(r.values) }

func (r Record) Columns() []string { return r.schema.ColumnNames() }

func (r Record) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value of a named column.
func (r Record) Get(name string) (float64, bool) {
	for i, c := range r.schema.columns {
		if c.Name == name {
			return r.values[i], true
		}
	}
	return 0, false
}

// Map is a convenience view for logging. It loses column order.
func (r Record) Map() map[string]float64 {
	m := make(map[string]float64, len(r.values))
	for i, c := range r.schema.columns {
		m[c.Name] = r.values[i]
	}
	return m
}

// Equal reports field-for-field equality, including schema and order.
func (r Record) Equal(other Record) bool {
	if r.schema.Name != other.schema.Name || len(r.values) != len(other.values) {
		return false
	}
	for i := range r.values {
		if r.schema.columns[i].Name != other.schema.columns[i].Name || r.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// DataFrameSplit is the pandas "split" orientation accepted by MLflow scoring servers.
type DataFrameSplit struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// DataFrameSplit encodes the record as a single-row frame. Integer columns are
// emitted as JSON integers so the server infers long rather than double.
func (r Record) DataFrameSplit() DataFrameSplit {
	row := make([]interface{}, len(r.values))
	for i, c := range r.schema.columns {
		v := r.values[i]
		if c.Kind == Integer && v == math.Trunc(v) {
			row[i] = int64(v)
		} else {
			row[i] = v
		}
	}
	return DataFrameSplit{
		Columns: r.schema.ColumnNames(),
		Data:    [][]interface{}{row},
	}
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.DataFrameSplit())
}

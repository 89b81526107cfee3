package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"emi-decision-engine/internal/common/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestRecordEvaluation_ExportsToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := New("emi-decision-engine", reg)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	obs.RecordEvaluation(context.Background(), "eligible", 12*time.Millisecond)
	obs.RecordEvaluation(context.Background(), "declined", 3*time.Millisecond)
	obs.RecordJobProcessed(context.Background(), "completed")
	obs.RecordJobDuration(context.Background(), 20*time.Millisecond, "completed")

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "emi_evaluations")
	assert.Contains(t, joined, "jobs_processed")
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.TracingConfig{Enabled: false}, config.AppConfig{Name: "emi-decision-engine"})
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := otel.Tracer("emi-decision-engine").Start(context.Background(), "test")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
}

func TestSetupTracing_Enabled(t *testing.T) {
	shutdown, err := SetupTracing(config.TracingConfig{
		Enabled:        true,
		JaegerEndpoint: "http://127.0.0.1:1/api/traces",
		SampleRatio:    1,
	}, config.AppConfig{Name: "emi-decision-engine"})
	require.NoError(t, err)

	_, span := otel.Tracer("emi-decision-engine").Start(context.Background(), "test")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

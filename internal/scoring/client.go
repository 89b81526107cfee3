// Package scoring calls MLflow model scoring servers.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	commonhttp "emi-decision-engine/internal/common/http"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/common/metrics"
	"emi-decision-engine/internal/features"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "emi-decision-engine/scoring"

var ErrUndecodable = errors.New("undecodable scoring response")

type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	name    string
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
	tracer  trace.Tracer
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("scoring: serving url for %q is empty", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    commonhttp.NewClient(cfg.Timeout),
		logger:  log.WithFields(map[string]interface{}{"model": cfg.Name}),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) URL() string { return c.baseURL }

type invocationRequest struct {
	DataframeSplit features.DataFrameSplit `json:"dataframe_split"`
}

// Predict sends one record and returns one numeric value per prediction.
func (c *Client) Predict(ctx context.Context, record features.Record) ([]float64, error) {
	ctx, span := c.tracer.Start(ctx, "scoring.Predict", trace.WithAttributes(
		attribute.String("model.name", c.name),
		attribute.Int("feature.count", record.Len()),
	))
	defer span.End()

	start := time.Now()
	body, err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/invocations",
		invocationRequest{DataframeSplit: record.DataFrameSplit()})
	if err == nil {
		var out []float64
		out, err = decodePredictions(body)
		if err == nil {
			metrics.InferenceDuration.WithLabelValues(c.name, "ok").Observe(time.Since(start).Seconds())
			c.logger.Debug("prediction received", map[string]interface{}{
				"predictions": out,
				"durationMs":  time.Since(start).Milliseconds(),
			})
			return out, nil
		}
	}

	metrics.InferenceDuration.WithLabelValues(c.name, "error").Observe(time.Since(start).Seconds())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, fmt.Errorf("%s: %w", c.name, err)
}

// Ping checks the scoring server's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/ping", nil); err != nil {
		return fmt.Errorf("%s: ping %s: %w", c.name, c.baseURL, err)
	}
	return nil
}

// decodePredictions accepts {"predictions": [...]} and a bare array.
func decodePredictions(body []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUndecodable)
	}

	var raw []json.RawMessage
	if trimmed[0] == '{' {
		var wrapped struct {
			Predictions []json.RawMessage `json:"predictions"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		if wrapped.Predictions == nil {
			return nil, fmt.Errorf("%w: missing predictions field", ErrUndecodable)
		}
		raw = wrapped.Predictions
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	out := make([]float64, 0, len(raw))
	for i, item := range raw {
		v, err := scalar(item)
		if err != nil {
			return nil, fmt.Errorf("%w: prediction %d: %v", ErrUndecodable, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// scalar reduces one prediction to a number. Multi-output models yield
// arrays or single-key objects; the first value is taken.
func scalar(item json.RawMessage) (float64, error) {
	var v interface{}
	if err := json.Unmarshal(item, &v); err != nil {
		return 0, err
	}
	return toFloat(v)
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	case []interface{}:
		if len(t) == 0 {
			return 0, errors.New("empty array")
		}
		return toFloat(t[0])
	case map[string]interface{}:
		if len(t) != 1 {
			return 0, fmt.Errorf("object with %d keys", len(t))
		}
		for _, inner := range t {
			return toFloat(inner)
		}
	}
	return 0, fmt.Errorf("unsupported value %v", v)
}

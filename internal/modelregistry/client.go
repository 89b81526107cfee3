package modelregistry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "emi-decision-engine/internal/common/http"
)

// ModelVersion mirrors the registry's model_version object.
type ModelVersion struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Source       string `json:"source"`
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	CurrentStage string `json:"current_stage"`
}

type modelVersionResponse struct {
	ModelVersion ModelVersion `json:"model_version"`
}

// Client talks to an MLflow tracking server's REST API.
type Client struct {
	baseURL string
	http    *commonhttp.Client
}

func NewClient(trackingURI string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(trackingURI, "/"),
		http:    commonhttp.NewClient(timeout),
	}
}

func (c *Client) GetModelVersionByAlias(ctx context.Context, name, alias string) (*ModelVersion, error) {
	q := url.Values{"name": {name}, "alias": {alias}}
	var resp modelVersionResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/2.0/mlflow/registered-models/alias?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("resolve alias %s@%s: %w", name, alias, err)
	}
	return &resp.ModelVersion, nil
}

func (c *Client) GetModelVersion(ctx context.Context, name, version string) (*ModelVersion, error) {
	q := url.Values{"name": {name}, "version": {version}}
	var resp modelVersionResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/2.0/mlflow/model-versions/get?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("get model version %s/%s: %w", name, version, err)
	}
	return &resp.ModelVersion, nil
}

// DownloadArtifact fetches one file through the tracking server's artifact proxy.
// source is an mlflow-artifacts: URI as stored on the model version.
func (c *Client) DownloadArtifact(ctx context.Context, source, file string) ([]byte, error) {
	path, err := artifactPath(source)
	if err != nil {
		return nil, err
	}
	target := c.baseURL + "/api/2.0/mlflow-artifacts/artifacts/" + strings.Trim(path+"/"+file, "/")
	data, err := c.http.DoJSON(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s from %s: %w", file, source, err)
	}
	return data, nil
}

func artifactPath(source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse artifact source %q: %w", source, err)
	}
	if u.Scheme != "mlflow-artifacts" {
		return "", fmt.Errorf("artifact source %q is not served by the tracking server", source)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}

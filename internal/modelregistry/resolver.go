package modelregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emi-decision-engine/internal/common/cache"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/common/metrics"
)

const cacheKeyPrefix = "emi:model:"

// ModelInfo is what the engine knows about a resolved model.
type ModelInfo struct {
	Reference  string     `json:"reference"`
	Name       string     `json:"name,omitempty"`
	Version    string     `json:"version,omitempty"`
	Source     string     `json:"source"`
	RunID      string     `json:"runId,omitempty"`
	Signature  *Signature `json:"signature,omitempty"`
	ResolvedAt time.Time  `json:"resolvedAt"`
}

// Resolver turns references into ModelInfo. Registry lookups are cached when
// a store is configured; the cache never holds applicant data.
type Resolver struct {
	client *Client
	store  cache.Store
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewResolver accepts a nil client when only local references are used and a
// nil store to disable caching.
func NewResolver(client *Client, store cache.Store, ttl time.Duration, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Resolver{
		client: client,
		store:  store,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "modelregistry"}),
		now:    time.Now,
	}
}

func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*ModelInfo, error) {
	if !ref.IsRegistry() {
		return r.resolveLocal(ref)
	}
	if r.client == nil {
		return nil, fmt.Errorf("registry reference %s needs a tracking uri", ref)
	}

	if info, ok := r.fromCache(ctx, ref); ok {
		return info, nil
	}

	var (
		mv  *ModelVersion
		err error
	)
	if ref.Kind == ByAlias {
		mv, err = r.client.GetModelVersionByAlias(ctx, ref.Name, ref.Alias)
	} else {
		mv, err = r.client.GetModelVersion(ctx, ref.Name, ref.Version)
	}
	if err != nil {
		return nil, err
	}

	info := &ModelInfo{
		Reference:  ref.Raw,
		Name:       mv.Name,
		Version:    mv.Version,
		Source:     mv.Source,
		RunID:      mv.RunID,
		ResolvedAt: r.now(),
	}
	sig, err := r.registrySignature(ctx, mv.Source)
	switch {
	case err == nil:
		info.Signature = &sig
	case errors.Is(err, ErrNoSignature):
		r.logger.Warn("model has no input signature", map[string]interface{}{
			"reference": ref.Raw,
			"source":    mv.Source,
		})
	default:
		return nil, fmt.Errorf("fetch signature for %s: %w", ref.Raw, err)
	}

	// Only complete resolutions are cached so a later fix to the model
	// version is seen on the next start.
	if info.Signature != nil {
		r.toCache(ctx, ref, info)
	}
	return info, nil
}

func (r *Resolver) registrySignature(ctx context.Context, source string) (Signature, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "mlflow-artifacts:") {
		data, err = r.client.DownloadArtifact(ctx, source, MLmodelFile)
	} else {
		data, err = os.ReadFile(filepath.Join(strings.TrimPrefix(source, "file://"), MLmodelFile))
	}
	if err != nil {
		return Signature{}, err
	}
	return ParseMLmodel(data)
}

func (r *Resolver) resolveLocal(ref Reference) (*ModelInfo, error) {
	info := &ModelInfo{Reference: ref.Raw, Source: ref.Path, ResolvedAt: r.now()}

	data, err := os.ReadFile(filepath.Join(ref.Path, MLmodelFile))
	if err != nil {
		return nil, fmt.Errorf("read local model %s: %w", ref.Path, err)
	}
	sig, err := ParseMLmodel(data)
	if err != nil && !errors.Is(err, ErrNoSignature) {
		return nil, err
	}
	if err == nil {
		info.Signature = &sig
	}
	return info, nil
}

func (r *Resolver) fromCache(ctx context.Context, ref Reference) (*ModelInfo, bool) {
	if r.store == nil {
		return nil, false
	}
	raw, err := r.store.Get(ctx, cacheKeyPrefix+ref.Raw)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			metrics.ModelCacheLookups.WithLabelValues("error").Inc()
			r.logger.Warn("model cache unavailable, using registry", map[string]interface{}{
				"reference": ref.Raw,
				"error":     err.Error(),
			})
			return nil, false
		}
		metrics.ModelCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var info ModelInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil || info.Signature == nil {
		metrics.ModelCacheLookups.WithLabelValues("error").Inc()
		r.logger.Warn("evicting unusable model cache entry", map[string]interface{}{"reference": ref.Raw})
		if derr := r.store.Del(ctx, cacheKeyPrefix+ref.Raw); derr != nil {
			r.logger.Warn("failed to evict model cache entry", map[string]interface{}{
				"reference": ref.Raw,
				"error":     derr.Error(),
			})
		}
		return nil, false
	}
	metrics.ModelCacheLookups.WithLabelValues("hit").Inc()
	r.logger.Debug("model resolved from cache", map[string]interface{}{"reference": ref.Raw, "version": info.Version})
	return &info, true
}

func (r *Resolver) toCache(ctx context.Context, ref Reference, info *ModelInfo) {
	if r.store == nil {
		return
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := r.store.Set(ctx, cacheKeyPrefix+ref.Raw, payload, r.ttl); err != nil {
		r.logger.Warn("failed to cache model resolution", map[string]interface{}{
			"reference": ref.Raw,
			"error":     err.Error(),
		})
	}
}

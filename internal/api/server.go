// Package api is the HTTP surface for collecting an applicant and returning a decision.
package api

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"emi-decision-engine/internal/common/config"
	"emi-decision-engine/internal/common/logger"
	"emi-decision-engine/internal/decision"
	"emi-decision-engine/internal/features"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Evaluator is satisfied by *decision.Orchestrator.
type Evaluator interface {
	Evaluate(ctx context.Context, record features.Record) (*decision.Result, error)
}

// ReadinessChecker is satisfied by *modelregistry.Models.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type Server struct {
	engine    *gin.Engine
	http      *http.Server
	evaluator Evaluator
	schema    features.Schema
	readiness ReadinessChecker
	logger    logger.Logger
}

func init() {
	// Report binding errors by their JSON names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func NewServer(cfg config.ServerConfig, evaluator Evaluator, schema features.Schema, readiness ReadinessChecker, log logger.Logger) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		engine:    gin.New(),
		evaluator: evaluator,
		schema:    schema,
		readiness: readiness,
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.engine.Use(gin.Recovery(), requestContext(), accessLog(s.logger))
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		emi := v1.Group("/emi")
		{
			emi.POST("/evaluate", s.evaluate)
			emi.GET("/schema", s.featureSchema)
		}
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

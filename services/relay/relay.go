// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relay provides the webhook-triggered notification relay
// service.
//
// The relay accepts Gmail Pub/Sub push notifications over HTTP, resolves
// them into mail alerts, validates senders against configured whitelists,
// classifies the content with an LLM, and appends the outcome to Google
// Sheets. Every collaborator is optional: a deployment with no LLM key
// still parses and logs, a deployment with no spreadsheet still
// classifies.
//
// # Usage
//
//	cfg := relay.Config{Port: 8000, Services: services.FromEnv()}
//	svc, err := relay.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/tradeflow/services/relay/handlers"
	"github.com/AleutianAI/tradeflow/services/relay/pipeline"
	"github.com/AleutianAI/tradeflow/services/relay/routes"
	"github.com/AleutianAI/tradeflow/services/relay/services"
)

// Version is reported on the root endpoint.
const Version = "0.2.0"

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the relay service.
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds relay service configuration. Zero values use defaults.
type Config struct {
	// Port is the HTTP server port. Default: 8000
	Port int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Empty disables tracing.
	OTelEndpoint string

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses the GIN_MODE env var or "debug".
	GinMode string

	// MaxConcurrent bounds concurrent pipeline runs. Default: 8
	MaxConcurrent int64

	// Services configures the pipeline collaborators.
	Services services.Config
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = 8
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config        Config
	router        *gin.Engine
	container     *services.Container
	dispatcher    *handlers.Dispatcher
	tracerCleanup func(context.Context)
}

var _ Service = (*service)(nil)

// New creates a relay Service: container, pipeline, tracer, and routes.
// Collaborators that cannot be created (missing keys, missing
// credentials) degrade the pipeline instead of failing construction.
func New(cfg Config) (Service, error) {
	s := &service{
		config:    applyConfigDefaults(cfg),
		container: services.NewDefaultContainer(cfg.Services),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	p, err := buildPipeline(s.container)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to assemble pipeline: %w", err)
	}
	s.dispatcher = handlers.NewDispatcher(p, s.config.MaxConcurrent)

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting relay server", "port", s.config.Port, "version", Version)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Pipeline assembly
// =============================================================================

// buildPipeline assembles the standard four-stage pipeline from whatever
// collaborators the container can currently provide.
func buildPipeline(c *services.Container) (*pipeline.Pipeline, error) {
	cfg := c.Config()

	var fetcher pipeline.MailFetcher
	if svc, ok := c.GetOptional(services.ServiceMailProvider).(pipeline.MailFetcher); ok {
		fetcher = svc
	}
	var clf pipeline.Classifier
	if svc, ok := c.GetOptional(services.ServiceClassifier).(pipeline.Classifier); ok {
		clf = svc
	}
	var alerts pipeline.AlertSink
	if svc, ok := c.GetOptional(services.ServiceAlertLog).(pipeline.AlertSink); ok {
		alerts = svc
	}
	var classifications pipeline.ClassificationSink
	if svc, ok := c.GetOptional(services.ServiceClassificationLog).(pipeline.ClassificationSink); ok {
		classifications = svc
	}

	return pipeline.NewBuilder().
		Add(pipeline.NewParseStage(fetcher, cfg.FetchTimeout)).
		Add(pipeline.NewWhitelistStage(fetcher, cfg.SenderWhitelist, cfg.DomainWhitelist)).
		Add(pipeline.NewClassifyStage(clf, cfg.ClassifyTimeout)).
		Add(pipeline.NewRecordStage(alerts, classifications, cfg.FetchTimeout)).
		Build()
}

// =============================================================================
// Private initialization
// =============================================================================

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("relay-service"))

	routes.SetupRoutes(s.router, s.container, s.dispatcher, Version)
}

// initTracer sets up the OTLP trace exporter. With no endpoint
// configured, tracing is a no-op and cleanup does nothing.
func (s *service) initTracer() (func(context.Context), error) {
	if s.config.OTelEndpoint == "" {
		slog.Info("OTEL endpoint not configured, tracing disabled")
		return func(context.Context) {}, nil
	}

	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("relay-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func (s *service) cleanup() {
	if s.container != nil {
		s.container.Shutdown()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

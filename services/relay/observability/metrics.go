// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability holds the relay's Prometheus metrics. All metrics
// are registered on the default registry and served by the /metrics
// endpoint.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsReceived counts inbound webhook notifications by
	// endpoint, before any processing.
	NotificationsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "notifications_received_total",
		Help:      "Inbound notifications accepted for processing, by endpoint.",
	}, []string{"endpoint"})

	// NotificationsRejected counts inbound requests rejected before
	// dispatch (malformed payloads, capacity).
	NotificationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "notifications_rejected_total",
		Help:      "Inbound requests rejected before pipeline dispatch, by reason.",
	}, []string{"reason"})

	// PipelineRuns counts finished pipeline runs by terminal status.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "pipeline_runs_total",
		Help:      "Finished pipeline runs, by terminal processing status.",
	}, []string{"status"})

	// PipelineDuration observes end-to-end pipeline latency.
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "pipeline_duration_seconds",
		Help:      "End-to-end pipeline run latency.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	// StageDuration observes per-stage latency.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "stage_duration_seconds",
		Help:      "Per-stage latency.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"stage"})

	// StageFailures counts stage executions that ended in a stage error.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "stage_failures_total",
		Help:      "Stage executions that raised an error, by stage.",
	}, []string{"stage"})

	// ClassifierCalls counts classifier invocations by provider and
	// outcome (ok, structural_error, transport_error).
	ClassifierCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeflow",
		Subsystem: "relay",
		Name:      "classifier_calls_total",
		Help:      "Classifier invocations, by provider and outcome.",
	}, []string{"provider", "outcome"})
)

// ObservePipelineRun records one finished run.
func ObservePipelineRun(status string, elapsed time.Duration) {
	PipelineRuns.WithLabelValues(status).Inc()
	PipelineDuration.Observe(elapsed.Seconds())
}

// ObserveStage records one stage execution.
func ObserveStage(stage string, elapsed time.Duration, failed bool) {
	StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if failed {
		StageFailures.WithLabelValues(stage).Inc()
	}
}

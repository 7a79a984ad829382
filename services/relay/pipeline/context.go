// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the alert processing pipeline: a fixed,
// ordered chain of stages that turns a raw inbound notification payload
// into a classified, logged record.
//
// Each notification gets a fresh Context that flows through the stages
// (Parse -> ValidateWhitelist -> Classify -> Record). Stages are isolated:
// a failing stage marks the context and later stages skip their primary
// work, except the Record stage, which always runs so the attempt is
// persisted regardless of outcome.
package pipeline

import (
	"time"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/google/uuid"
)

// =============================================================================
// Processing status
// =============================================================================

// Status is the closed set of processing states a pipeline run moves
// through. See the state machine in the package tests.
type Status string

const (
	StatusReceived Status = "received"
	StatusParsed   Status = "parsed"

	// StatusBlocked is the terminal failure set by the whitelist stage.
	StatusBlocked Status = "blocked"

	// Classification outcomes.
	StatusLLMNotAvailable    Status = "llm_not_available"
	StatusLLMError           Status = "llm_error"
	StatusParsedTradingAlert Status = "parsed_trading_alert"
	StatusParsedNonTrading   Status = "parsed_non_trading"

	// StatusCompleted is set by the record stage when no error was
	// recorded during the run.
	StatusCompleted Status = "completed"

	// StatusError marks a stage-level failure converted by the
	// orchestrator's wrapper.
	StatusError Status = "error"

	// StatusPipelineError marks a failure of the orchestrator itself,
	// outside any single stage.
	StatusPipelineError Status = "pipeline_error"
)

// WhitelistStatus records the whitelist stage's decision independently of
// the processing status.
type WhitelistStatus string

const (
	WhitelistPending       WhitelistStatus = "pending_validation"
	WhitelistNotConfigured WhitelistStatus = "no_whitelist"
	WhitelistAllowed       WhitelistStatus = "allowed"
	WhitelistBlocked       WhitelistStatus = "blocked"
)

// =============================================================================
// Context
// =============================================================================

// Context is the mutable per-run record that flows through the pipeline.
// It is never shared across concurrent runs: one inbound notification,
// one Context.
type Context struct {
	// ID uniquely identifies this pipeline run in logs.
	ID string

	// RawData is the inbound notification payload, treated as an opaque,
	// defensively-parsed mapping.
	RawData map[string]any

	// Timestamp is when the run started.
	Timestamp time.Time

	// ProcessingStatus tracks run state; see the Status constants.
	ProcessingStatus Status

	// ErrorMessage holds the first recorded failure. Later, less specific
	// failures never overwrite it.
	ErrorMessage string

	// WhitelistStatus is the whitelist stage's decision.
	WhitelistStatus WhitelistStatus

	// Alert is set by the parse stage.
	Alert *datatypes.Alert

	// Classification is set by the classify stage.
	Classification *datatypes.ClassificationResult

	// Provider tags which LLM backend handled classification.
	Provider datatypes.Provider

	// ClassifyDuration is the wall-clock time of the classifier call.
	ClassifyDuration time.Duration

	// MessageID and Sender are copied out of the alert metadata for
	// logging even when the alert itself is lost downstream.
	MessageID string
	Sender    string

	// Metadata is a snapshot of the alert's metadata mapping.
	Metadata map[string]any

	// CompletedStages lists stages that ran to completion, in order.
	// A stage name appears at most once.
	CompletedStages []string

	// CurrentStage names the stage executing right now; empty between
	// stages and after the run.
	CurrentStage string
}

// NewContext creates a fresh context for one inbound notification.
func NewContext(raw map[string]any) *Context {
	return &Context{
		ID:               uuid.NewString(),
		RawData:          raw,
		Timestamp:        time.Now().UTC(),
		ProcessingStatus: StatusReceived,
		WhitelistStatus:  WhitelistPending,
		Provider:         datatypes.ProviderNone,
		MessageID:        "unknown",
		Sender:           "unknown",
		Metadata:         map[string]any{},
	}
}

// StartStage marks a stage as currently executing.
func (c *Context) StartStage(name string) {
	c.CurrentStage = name
}

// MarkStageComplete records stage completion idempotently and clears the
// current-stage marker.
func (c *Context) MarkStageComplete(name string) {
	for _, done := range c.CompletedStages {
		if done == name {
			c.CurrentStage = ""
			return
		}
	}
	c.CompletedStages = append(c.CompletedStages, name)
	c.CurrentStage = ""
}

// SetError records a failure and moves the context into the given status.
// The first recorded message wins; the status still transitions.
func (c *Context) SetError(message string, status Status) {
	if c.ErrorMessage == "" {
		c.ErrorMessage = message
	}
	c.ProcessingStatus = status
}

// HasError reports whether any failure has been recorded.
func (c *Context) HasError() bool {
	return c.ErrorMessage != ""
}

// IsSuccessful reports whether the run ended in a successful terminal
// state.
func (c *Context) IsSuccessful() bool {
	switch c.ProcessingStatus {
	case StatusCompleted, StatusParsedTradingAlert, StatusParsedNonTrading:
		return true
	}
	return false
}

// ShouldContinue reports whether later stages may perform their primary
// work. Terminal failure states and completion halt the chain; the record
// stage ignores this and always runs.
func (c *Context) ShouldContinue() bool {
	switch c.ProcessingStatus {
	case StatusBlocked, StatusCompleted, StatusError, StatusPipelineError:
		return false
	}
	return true
}

// Summary returns the loggable digest of the run.
func (c *Context) Summary() map[string]any {
	summary := map[string]any{
		"context_id":        c.ID,
		"message_id":        c.MessageID,
		"sender":            c.Sender,
		"processing_status": string(c.ProcessingStatus),
		"whitelist_status":  string(c.WhitelistStatus),
		"error_message":     c.ErrorMessage,
		"llm_provider":      string(c.Provider),
		"duration_ms":       float64(c.ClassifyDuration.Microseconds()) / 1000.0,
		"completed_stages":  c.CompletedStages,
		"timestamp":         c.Timestamp.Format(time.RFC3339),
	}
	if c.Classification != nil {
		summary["llm_is_trading_alert"] = c.Classification.IsTradingAlert
		summary["llm_trades_count"] = len(c.Classification.Trades)
	}
	return summary
}

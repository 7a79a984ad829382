// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/AleutianAI/tradeflow/services/relay/observability"
)

// StageNameClassify identifies the classification stage.
const StageNameClassify = "llm_analysis"

// ClassifyStage asks the classifier whether the alert describes trading
// activity.
//
// Failure handling distinguishes two cases. A transport failure (the
// provider call itself errored) fails the stage. A structural failure
// (the provider answered, but the answer could not be interpreted) is
// recorded on the result and the run continues to logging with status
// llm_error. A missing classifier is not an error at all.
type ClassifyStage struct {
	classifier Classifier
	timeout    time.Duration
}

var _ Stage = (*ClassifyStage)(nil)

// NewClassifyStage creates the classification stage. classifier may be
// nil; timeout bounds the provider call.
func NewClassifyStage(classifier Classifier, timeout time.Duration) *ClassifyStage {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ClassifyStage{classifier: classifier, timeout: timeout}
}

func (s *ClassifyStage) Name() string     { return StageNameClassify }
func (s *ClassifyStage) AlwaysRuns() bool { return false }

func (s *ClassifyStage) Run(ctx context.Context, pc *Context) error {
	if pc.Alert == nil {
		return fmt.Errorf("classification requires a parsed alert")
	}

	if s.classifier == nil {
		pc.ProcessingStatus = StatusLLMNotAvailable
		pc.Provider = datatypes.ProviderNotAvailable
		slog.Info("No classifier available, skipping analysis", "context_id", pc.ID)
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.classifier.Classify(callCtx, pc.Alert.Content)
	pc.ClassifyDuration = time.Since(start)

	if err != nil {
		pc.Provider = datatypes.ProviderError
		observability.ClassifierCalls.WithLabelValues(string(pc.Provider), "transport_error").Inc()
		return fmt.Errorf("classifier call failed: %w", err)
	}

	pc.Classification = &result
	pc.Provider = result.Provider

	if result.Error != "" {
		observability.ClassifierCalls.WithLabelValues(string(result.Provider), "structural_error").Inc()
		pc.SetError(result.Error, StatusLLMError)
		slog.Warn("Classification returned structural error",
			"context_id", pc.ID, "provider", string(result.Provider), "error", result.Error)
		return nil
	}

	observability.ClassifierCalls.WithLabelValues(string(result.Provider), "ok").Inc()

	if result.IsTradingAlert {
		pc.ProcessingStatus = StatusParsedTradingAlert
	} else {
		pc.ProcessingStatus = StatusParsedNonTrading
	}
	slog.Info("Alert classified",
		"context_id", pc.ID,
		"provider", string(result.Provider),
		"is_trading_alert", result.IsTradingAlert,
		"trades", len(result.Trades),
		"duration_ms", pc.ClassifyDuration.Milliseconds())
	return nil
}

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
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
)

// StageNameRecord identifies the logging stage.
const StageNameRecord = "log_alert"

// maxRawResponseLen caps the provider response text persisted per row.
const maxRawResponseLen = 500

// RecordStage persists the processing attempt. It always runs, even after
// upstream failures, and it never fails the run itself: sink errors are
// logged and swallowed so a dead spreadsheet cannot take the relay down.
type RecordStage struct {
	alerts          AlertSink
	classifications ClassificationSink
	timeout         time.Duration
}

var _ Stage = (*RecordStage)(nil)

// NewRecordStage creates the logging stage. Either sink may be nil.
func NewRecordStage(alerts AlertSink, classifications ClassificationSink, timeout time.Duration) *RecordStage {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RecordStage{alerts: alerts, classifications: classifications, timeout: timeout}
}

func (s *RecordStage) Name() string     { return StageNameRecord }
func (s *RecordStage) AlwaysRuns() bool { return true }

func (s *RecordStage) Run(ctx context.Context, pc *Context) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.alerts != nil {
		if err := s.alerts.AppendAlert(callCtx, s.alertRecord(pc)); err != nil {
			slog.Error("Failed to persist alert record", "context_id", pc.ID, "error", err)
		}
	}

	// The secondary row records every classification attempt, including
	// ones that produced no result (transport failure, no classifier).
	if s.classifications != nil && classificationAttempted(pc) {
		if err := s.classifications.AppendClassification(callCtx, s.classificationRecord(pc)); err != nil {
			slog.Error("Failed to persist classification record", "context_id", pc.ID, "error", err)
		}
	}

	if !pc.HasError() {
		pc.ProcessingStatus = StatusCompleted
	}
	return nil
}

func (s *RecordStage) alertRecord(pc *Context) AlertRecord {
	rec := AlertRecord{
		Timestamp:        pc.Timestamp.Format(time.RFC3339),
		MessageID:        pc.MessageID,
		Sender:           pc.Sender,
		Source:           "unknown",
		Content:          "(alert lost before logging)",
		WhitelistStatus:  string(pc.WhitelistStatus),
		ProcessingStatus: string(pc.ProcessingStatus),
		ErrorMessage:     pc.ErrorMessage,
		Metadata:         enhancedMetadata(pc),
	}
	if pc.Alert != nil {
		rec.Source = pc.Alert.Source
		rec.Content = pc.Alert.Content
	}
	return rec
}

// classificationAttempted reports whether the classify stage did any
// work worth a row. The provider tag leaves "none" the moment the stage
// runs, even when the call never produced a result.
func classificationAttempted(pc *Context) bool {
	return pc.Classification != nil || pc.Provider != datatypes.ProviderNone
}

func (s *RecordStage) classificationRecord(pc *Context) ClassificationRecord {
	rec := ClassificationRecord{
		Timestamp:    pc.Timestamp.Format(time.RFC3339),
		MessageID:    pc.MessageID,
		Sender:       pc.Sender,
		Provider:     string(pc.Provider),
		DurationMS:   float64(pc.ClassifyDuration.Microseconds()) / 1000.0,
		ErrorMessage: pc.ErrorMessage,
	}
	if result := pc.Classification; result != nil {
		rec.IsTradingAlert = result.IsTradingAlert
		rec.Trades = result.Trades
		rec.RawResponse = truncate(result.RawResponse, maxRawResponseLen)
		rec.ErrorMessage = result.Error
	}
	return rec
}

// enhancedMetadata merges the alert metadata with the classification
// outcome so the logged row is self-contained.
func enhancedMetadata(pc *Context) map[string]any {
	merged := make(map[string]any, len(pc.Metadata)+5)
	for k, v := range pc.Metadata {
		merged[k] = v
	}
	if result := pc.Classification; result != nil {
		merged["llm_is_trading_alert"] = result.IsTradingAlert
		merged["llm_trades_count"] = len(result.Trades)
		merged["llm_raw_response"] = truncate(result.RawResponse, maxRawResponseLen)
		if tickers := result.Tickers(); tickers != nil {
			merged["llm_tickers"] = strings.Join(tickers, ",")
		}
		if actions := result.Actions(); actions != nil {
			merged["llm_actions"] = strings.Join(actions, ",")
		}
	}
	return merged
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

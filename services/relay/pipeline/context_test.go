// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"testing"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext_Defaults(t *testing.T) {
	raw := map[string]any{"message": map[string]any{}}
	pc := NewContext(raw)

	require.NotEmpty(t, pc.ID)
	assert.Equal(t, StatusReceived, pc.ProcessingStatus)
	assert.Equal(t, WhitelistPending, pc.WhitelistStatus)
	assert.Equal(t, datatypes.ProviderNone, pc.Provider)
	assert.Equal(t, "unknown", pc.MessageID)
	assert.Equal(t, "unknown", pc.Sender)
	assert.False(t, pc.HasError())
	assert.Empty(t, pc.CompletedStages)

	other := NewContext(raw)
	assert.NotEqual(t, pc.ID, other.ID, "every run gets a distinct id")
}

func TestMarkStageComplete_Idempotent(t *testing.T) {
	pc := NewContext(nil)

	pc.StartStage("parse_alert")
	assert.Equal(t, "parse_alert", pc.CurrentStage)

	pc.MarkStageComplete("parse_alert")
	pc.MarkStageComplete("parse_alert")
	pc.MarkStageComplete("llm_analysis")

	assert.Equal(t, []string{"parse_alert", "llm_analysis"}, pc.CompletedStages)
	assert.Empty(t, pc.CurrentStage)
}

func TestSetError_FirstMessageWins(t *testing.T) {
	pc := NewContext(nil)

	pc.SetError("original failure", StatusLLMError)
	pc.SetError("later, vaguer failure", StatusError)

	assert.Equal(t, "original failure", pc.ErrorMessage)
	assert.Equal(t, StatusError, pc.ProcessingStatus, "status still transitions")
	assert.True(t, pc.HasError())
}

func TestShouldContinue(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusReceived, true},
		{StatusParsed, true},
		{StatusLLMNotAvailable, true},
		{StatusLLMError, true},
		{StatusParsedTradingAlert, true},
		{StatusParsedNonTrading, true},
		{StatusBlocked, false},
		{StatusCompleted, false},
		{StatusError, false},
		{StatusPipelineError, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			pc := NewContext(nil)
			pc.ProcessingStatus = tt.status
			assert.Equal(t, tt.want, pc.ShouldContinue())
		})
	}
}

func TestIsSuccessful(t *testing.T) {
	successful := []Status{StatusCompleted, StatusParsedTradingAlert, StatusParsedNonTrading}
	unsuccessful := []Status{
		StatusReceived, StatusParsed, StatusBlocked, StatusLLMNotAvailable,
		StatusLLMError, StatusError, StatusPipelineError,
	}

	for _, s := range successful {
		pc := NewContext(nil)
		pc.ProcessingStatus = s
		assert.True(t, pc.IsSuccessful(), string(s))
	}
	for _, s := range unsuccessful {
		pc := NewContext(nil)
		pc.ProcessingStatus = s
		assert.False(t, pc.IsSuccessful(), string(s))
	}
}

func TestSummary(t *testing.T) {
	pc := NewContext(nil)
	pc.MessageID = "msg-1"
	pc.Sender = "alerts@trades.example.com"
	pc.ProcessingStatus = StatusParsedTradingAlert
	pc.Classification = &datatypes.ClassificationResult{
		IsTradingAlert: true,
		Trades:         []datatypes.Trade{{Ticker: "NVDA", Action: datatypes.ActionBuy}},
	}

	summary := pc.Summary()

	assert.Equal(t, "msg-1", summary["message_id"])
	assert.Equal(t, "parsed_trading_alert", summary["processing_status"])
	assert.Equal(t, true, summary["llm_is_trading_alert"])
	assert.Equal(t, 1, summary["llm_trades_count"])
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/tradeflow/services/llm"
	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	name     string
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(_ context.Context, _, _ string, _ llm.GenerationParams) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Name() string { return f.name }

func TestParseResponse_CleanJSON(t *testing.T) {
	text := `{"is_trading_alert": true, "trades": [{"ticker": "NVDA", "action": "buy", "price": 890.5}]}`

	result := parseResponse(text, datatypes.ProviderAnthropic)

	assert.Empty(t, result.Error)
	assert.True(t, result.IsTradingAlert)
	assert.Equal(t, datatypes.ProviderAnthropic, result.Provider)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "NVDA", result.Trades[0].Ticker)
	assert.Equal(t, datatypes.ActionBuy, result.Trades[0].Action)
	require.NotNil(t, result.Trades[0].Price)
	assert.InDelta(t, 890.5, *result.Trades[0].Price, 0.001)
}

func TestParseResponse_MarkdownFenced(t *testing.T) {
	text := "```json\n{\"is_trading_alert\": false, \"trades\": []}\n```"

	result := parseResponse(text, datatypes.ProviderOpenAI)

	assert.Empty(t, result.Error)
	assert.False(t, result.IsTradingAlert)
	assert.Empty(t, result.Trades)
}

func TestParseResponse_ProseAroundJSON(t *testing.T) {
	text := `Here is my analysis: {"is_trading_alert": true, "trades": [{"ticker": "aapl", "action": "SELL"}]} Hope that helps!`

	result := parseResponse(text, datatypes.ProviderAnthropic)

	assert.Empty(t, result.Error)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "AAPL", result.Trades[0].Ticker, "tickers are sanitized to uppercase")
	assert.Equal(t, datatypes.ActionSell, result.Trades[0].Action, "actions are normalized to lowercase")
}

func TestParseResponse_NoJSON(t *testing.T) {
	result := parseResponse("I think this might be about stocks?", datatypes.ProviderOpenAI)

	assert.NotEmpty(t, result.Error)
	assert.Contains(t, result.Error, "no JSON object")
	assert.Equal(t, "I think this might be about stocks?", result.RawResponse)
	assert.Equal(t, datatypes.ProviderOpenAI, result.Provider, "failed results keep their attribution")
}

func TestParseResponse_MalformedJSON(t *testing.T) {
	result := parseResponse(`{"is_trading_alert": true, "trades": [`, datatypes.ProviderAnthropic)

	assert.NotEmpty(t, result.Error)
	assert.Contains(t, result.Error, "not valid JSON")
}

func TestParseResponse_DropsInvalidTrades(t *testing.T) {
	text := `{"is_trading_alert": true, "trades": [
		{"ticker": "NVDA", "action": "buy"},
		{"ticker": "", "action": "buy"},
		{"ticker": "TSLA", "action": "yolo"},
		{"ticker": "=CMD()", "action": "sell"}
	]}`

	result := parseResponse(text, datatypes.ProviderAnthropic)

	assert.Empty(t, result.Error)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "NVDA", result.Trades[0].Ticker)
}

func TestParseResponse_AdjustAllocation(t *testing.T) {
	text := `{"is_trading_alert": true, "trades": [{"ticker": "VOO", "action": "adjust-allocation", "target_allocation": "25%"}]}`

	result := parseResponse(text, datatypes.ProviderAnthropic)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, datatypes.ActionAdjustAllocation, result.Trades[0].Action)
	assert.Equal(t, "25%", result.Trades[0].TargetAllocation)
}

func TestClassify_PrimaryProvider(t *testing.T) {
	primary := &fakeLLM{name: "Anthropic", response: `{"is_trading_alert": false, "trades": []}`}
	fallback := &fakeLLM{name: "OpenAI"}
	c := &Classifier{backends: []backend{
		{client: primary, provider: datatypes.ProviderAnthropic},
		{client: fallback, provider: datatypes.ProviderOpenAI},
	}}

	result, err := c.Classify(context.Background(), "market newsletter")
	require.NoError(t, err)

	assert.Equal(t, datatypes.ProviderAnthropic, result.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls, "fallback untouched when primary succeeds")
}

func TestClassify_FallbackOnTransportError(t *testing.T) {
	primary := &fakeLLM{name: "Anthropic", err: errors.New("rate limited")}
	fallback := &fakeLLM{name: "OpenAI", response: `{"is_trading_alert": true, "trades": [{"ticker": "NVDA", "action": "buy"}]}`}
	c := &Classifier{backends: []backend{
		{client: primary, provider: datatypes.ProviderAnthropic},
		{client: fallback, provider: datatypes.ProviderOpenAI},
	}}

	result, err := c.Classify(context.Background(), "BUY NVDA")
	require.NoError(t, err)

	assert.Equal(t, datatypes.ProviderOpenAI, result.Provider)
	assert.True(t, result.IsTradingAlert)
}

func TestClassify_AllProvidersFail(t *testing.T) {
	c := &Classifier{backends: []backend{
		{client: &fakeLLM{name: "Anthropic", err: errors.New("rate limited")}, provider: datatypes.ProviderAnthropic},
		{client: &fakeLLM{name: "OpenAI", err: errors.New("connection refused")}, provider: datatypes.ProviderOpenAI},
	}}

	_, err := c.Classify(context.Background(), "BUY NVDA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNew_NoProviders(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ========== TRADE ACTIONS ==========

// TradeAction is the closed vocabulary of instructions the classifier may
// extract from an alert.
type TradeAction string

const (
	ActionBuy              TradeAction = "buy"
	ActionSell             TradeAction = "sell"
	ActionShort            TradeAction = "short"
	ActionAdjustAllocation TradeAction = "adjust-allocation"
	ActionClose            TradeAction = "close"
)

// IsValid reports whether the action is part of the known vocabulary.
func (a TradeAction) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionShort, ActionAdjustAllocation, ActionClose:
		return true
	}
	return false
}

// Trade is one structured trade mention extracted from alert content.
type Trade struct {
	Ticker string      `json:"ticker"`
	Action TradeAction `json:"action"`

	// Optional fields the model may or may not produce.
	Price            *float64 `json:"price,omitempty"`
	TargetAllocation string   `json:"target_allocation,omitempty"`
}

// ========== PROVIDER ATTRIBUTION ==========

// Provider identifies which LLM backend produced a classification. The
// classifier sets this explicitly on the result so downstream code never
// has to infer the provider from client internals.
type Provider string

const (
	ProviderAnthropic    Provider = "Anthropic"
	ProviderOpenAI       Provider = "OpenAI"
	ProviderNone         Provider = "none"
	ProviderNotAvailable Provider = "not_available"
	ProviderError        Provider = "error"
)

// ========== CLASSIFICATION RESULT ==========

// ClassificationResult is the outcome of classifying one alert's content.
//
// A structural failure (the model answered, but the answer could not be
// interpreted) is reported via Error, not via a Go error: the classifier
// only returns a Go error for transport/provider-level failures.
type ClassificationResult struct {
	// IsTradingAlert is the classification verdict.
	IsTradingAlert bool `json:"is_trading_alert"`

	// Trades holds extracted trade mentions, in the order the model
	// produced them. Nil when the content is not a trading alert.
	Trades []Trade `json:"trades,omitempty"`

	// Error describes a structural classification failure, e.g. malformed
	// model output. Empty on success.
	Error string `json:"error,omitempty"`

	// RawResponse retains the unparsed model output for diagnostics.
	RawResponse string `json:"raw_response,omitempty"`

	// Provider tags which backend produced the response.
	Provider Provider `json:"provider,omitempty"`
}

// Tickers returns the ticker symbols of all extracted trades, in order.
func (r ClassificationResult) Tickers() []string {
	if len(r.Trades) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Trades))
	for _, t := range r.Trades {
		out = append(out, t.Ticker)
	}
	return out
}

// Actions returns the actions of all extracted trades, in order.
func (r ClassificationResult) Actions() []string {
	if len(r.Trades) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Trades))
	for _, t := range r.Trades {
		out = append(out, string(t.Action))
	}
	return out
}

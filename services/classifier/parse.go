// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"encoding/json"
	"strings"

	"github.com/AleutianAI/tradeflow/pkg/validation"
	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
)

// llmVerdict mirrors the JSON shape the prompt asks for.
type llmVerdict struct {
	IsTradingAlert bool       `json:"is_trading_alert"`
	Trades         []llmTrade `json:"trades"`
}

type llmTrade struct {
	Ticker           string   `json:"ticker"`
	Action           string   `json:"action"`
	Price            *float64 `json:"price,omitempty"`
	TargetAllocation string   `json:"target_allocation,omitempty"`
}

// parseResponse interprets the model's text. Interpretation failures are
// structural: they are recorded on the result so the run can still be
// logged, and the raw response is preserved for diagnostics.
func parseResponse(text string, provider datatypes.Provider) datatypes.ClassificationResult {
	result := datatypes.ClassificationResult{
		RawResponse: text,
		Provider:    provider,
	}

	payload := extractJSON(text)
	if payload == "" {
		result.Error = "no JSON object found in model response"
		return result
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		result.Error = "model response was not valid JSON: " + err.Error()
		return result
	}

	result.IsTradingAlert = verdict.IsTradingAlert
	for _, t := range verdict.Trades {
		ticker, err := validation.SanitizeTicker(t.Ticker)
		action := datatypes.TradeAction(strings.ToLower(strings.TrimSpace(t.Action)))
		if err != nil || !action.IsValid() {
			// Drop extractions the model hallucinated outside the schema.
			continue
		}
		result.Trades = append(result.Trades, datatypes.Trade{
			Ticker:           ticker,
			Action:           action,
			Price:            t.Price,
			TargetAllocation: t.TargetAllocation,
		})
	}
	return result
}

// extractJSON pulls the outermost JSON object out of a response that may
// be wrapped in markdown fences or prose. A truncated object (opening
// brace, no closing one) is returned as-is so the decoder can report the
// malformation.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if fenced, ok := stripFences(text); ok {
		text = fenced
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return text[start:]
	}
	return text[start : end+1]
}

func stripFences(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text), true
}

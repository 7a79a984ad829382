// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeActionIsValid(t *testing.T) {
	valid := []TradeAction{ActionBuy, ActionSell, ActionShort, ActionAdjustAllocation, ActionClose}
	for _, a := range valid {
		assert.True(t, a.IsValid(), "expected %q to be valid", a)
	}

	invalid := []TradeAction{"", "hold", "BUY", "cover", "buy "}
	for _, a := range invalid {
		assert.False(t, a.IsValid(), "expected %q to be invalid", a)
	}
}

func TestClassificationResultDerivedLists(t *testing.T) {
	result := ClassificationResult{
		IsTradingAlert: true,
		Trades: []Trade{
			{Ticker: "AAPL", Action: ActionBuy},
			{Ticker: "COIN", Action: ActionSell},
		},
		Provider: ProviderAnthropic,
	}

	assert.Equal(t, []string{"AAPL", "COIN"}, result.Tickers())
	assert.Equal(t, []string{"buy", "sell"}, result.Actions())
}

func TestClassificationResultDerivedLists_Empty(t *testing.T) {
	result := ClassificationResult{IsTradingAlert: false}

	assert.Nil(t, result.Tickers())
	assert.Nil(t, result.Actions())
}

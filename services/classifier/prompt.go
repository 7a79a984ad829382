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

import "fmt"

const systemPrompt = `You are a financial notification classifier. You receive the text of an
email notification and decide whether it describes concrete trading
activity (an executed or recommended trade), then extract the trades.

Respond with ONLY a JSON object, no prose and no markdown fences:

{
  "is_trading_alert": true or false,
  "trades": [
    {
      "ticker": "SYMBOL",
      "action": "buy" | "sell" | "short" | "adjust-allocation" | "close",
      "price": 123.45,
      "target_allocation": "10%"
    }
  ]
}

Rules:
- "trades" is an empty array when is_trading_alert is false.
- "price" and "target_allocation" are optional; omit them when absent.
- Tickers are uppercase exchange symbols.
- Newsletters, performance summaries, and market commentary are NOT
  trading alerts.`

func userPrompt(content string) string {
	return fmt.Sprintf("Classify this notification:\n\n%s", content)
}

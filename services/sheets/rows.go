// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sheets

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/AleutianAI/tradeflow/services/relay/pipeline"
)

// Column orders are fixed so existing spreadsheets stay readable across
// deployments. Metadata maps are flattened to deterministic JSON.

var alertHeader = []any{
	"Timestamp", "Message ID", "Sender", "Source", "Content",
	"Whitelist Status", "Processing Status", "Error", "Metadata",
}

var classificationHeader = []any{
	"Timestamp", "Message ID", "Sender", "Provider", "Is Trading Alert",
	"Tickers", "Actions", "Trades", "Raw Response", "Duration (ms)", "Error",
}

func alertRow(rec pipeline.AlertRecord) []any {
	return []any{
		rec.Timestamp,
		rec.MessageID,
		rec.Sender,
		rec.Source,
		sanitizeCell(rec.Content),
		rec.WhitelistStatus,
		rec.ProcessingStatus,
		sanitizeCell(rec.ErrorMessage),
		metadataJSON(rec.Metadata),
	}
}

func classificationRow(rec pipeline.ClassificationRecord) []any {
	var tickers, actions []string
	for _, t := range rec.Trades {
		tickers = append(tickers, t.Ticker)
		actions = append(actions, string(t.Action))
	}
	tradesJSON, _ := json.Marshal(rec.Trades)

	return []any{
		rec.Timestamp,
		rec.MessageID,
		rec.Sender,
		rec.Provider,
		rec.IsTradingAlert,
		strings.Join(tickers, ","),
		strings.Join(actions, ","),
		string(tradesJSON),
		sanitizeCell(rec.RawResponse),
		rec.DurationMS,
		sanitizeCell(rec.ErrorMessage),
	}
}

// metadataJSON renders the metadata map with sorted keys so identical
// runs produce identical cells.
func metadataJSON(metadata map[string]any) string {
	if len(metadata) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, err := json.Marshal(metadata[k])
		if err != nil {
			valJSON, _ = json.Marshal("(unencodable)")
		}
		b.Write(keyJSON)
		b.WriteString(":")
		b.Write(valJSON)
	}
	b.WriteString("}")
	return b.String()
}

// sanitizeCell defuses spreadsheet formula injection. Cell text starting
// with a formula trigger gets a leading apostrophe, the spreadsheet
// convention for "this is text".
func sanitizeCell(text string) string {
	if text == "" {
		return text
	}
	switch text[0] {
	case '=', '+', '-', '@':
		return "'" + text
	}
	return text
}

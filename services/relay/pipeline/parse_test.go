// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pubsubPayload(messageID, data string) map[string]any {
	return map[string]any{
		"message": map[string]any{
			"messageId":   messageID,
			"publishTime": "2026-08-30T12:00:00Z",
			"data":        data,
		},
	}
}

func TestParsePayload_Base64JSONSnippet(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(`{"snippet": "BUY 100 NVDA @ 890.50"}`))
	alert := parsePayload(pubsubPayload("msg-42", data))

	assert.Equal(t, datatypes.SourceMailBasic, alert.Source)
	assert.Equal(t, "BUY 100 NVDA @ 890.50", alert.Content)
	assert.Equal(t, "msg-42", alert.StringMeta(datatypes.MetaMessageID, ""))
	assert.Equal(t, "basic_pubsub", alert.StringMeta(datatypes.MetaParsingMethod, ""))
	assert.Equal(t, "2026-08-30T12:00:00Z", alert.StringMeta(datatypes.MetaPublishTime, ""))
}

func TestParsePayload_Base64PlainText(t *testing.T) {
	data := base64.URLEncoding.EncodeToString([]byte("SELL all AAPL"))
	alert := parsePayload(pubsubPayload("msg-1", data))

	assert.Equal(t, "SELL all AAPL", alert.Content)
	assert.Contains(t, alert.StringMeta(datatypes.MetaParsingNotes, ""), "not JSON")
}

func TestParsePayload_LiftsSenderAndSubject(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(
		`{"snippet": "BUY NVDA", "sender": "alerts@trades.example.com", "subject": "signal"}`))
	alert := parsePayload(pubsubPayload("msg-2", data))

	assert.Equal(t, "BUY NVDA", alert.Content)
	assert.Equal(t, "alerts@trades.example.com", alert.StringMeta(datatypes.MetaSender, ""))
	assert.Equal(t, "signal", alert.StringMeta(datatypes.MetaSubject, ""))
}

func TestParsePayload_SynthesizesMessageID(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(`{"body": "hello"}`))
	payload := map[string]any{"message": map[string]any{"data": data}}

	alert := parsePayload(payload)

	id := alert.StringMeta(datatypes.MetaMessageID, "")
	assert.Contains(t, id, "no-id-")
	assert.Contains(t, alert.StringMeta(datatypes.MetaParsingNotes, ""), "synthesized")
}

func TestParsePayload_AttributesFallback(t *testing.T) {
	payload := map[string]any{
		"message": map[string]any{
			"messageId": "msg-7",
			"attributes": map[string]any{
				"ticker": "TSLA",
				"action": "sell",
			},
		},
	}

	alert := parsePayload(payload)

	assert.Equal(t, "attributes", alert.StringMeta(datatypes.MetaParsingMethod, ""))
	assert.Equal(t, "action=sell\nticker=TSLA", alert.Content, "attributes render sorted by key")
}

func TestParsePayload_StringifiedFallback(t *testing.T) {
	payload := map[string]any{"unexpected": "shape"}

	alert := parsePayload(payload)

	assert.Equal(t, "raw_payload", alert.StringMeta(datatypes.MetaParsingMethod, ""))
	assert.Contains(t, alert.Content, "unexpected")
}

func TestParsePayload_InvalidBase64(t *testing.T) {
	payload := pubsubPayload("msg-9", "!!! not base64 !!!")

	alert := parsePayload(payload)

	assert.Equal(t, "raw_payload", alert.StringMeta(datatypes.MetaParsingMethod, ""))
	assert.Contains(t, alert.StringMeta(datatypes.MetaParsingNotes, ""), "base64")
}

func TestParsePayload_EmptyPayload(t *testing.T) {
	alert := parsePayload(nil)

	assert.Equal(t, datatypes.SourceMailMinimal, alert.Source)
	assert.NotEmpty(t, alert.Content)
	assert.Contains(t, alert.StringMeta(datatypes.MetaMessageID, ""), "no-id-")
}

func TestParseStage_AdoptsFetchedAlert(t *testing.T) {
	fetched := datatypes.NewAlert(datatypes.SourceMail, "full message body", time.Now(), map[string]any{
		datatypes.MetaMessageID: "gmail-123",
		datatypes.MetaSender:    "alerts@trades.example.com",
		datatypes.MetaSubject:   "Trade alert",
	})
	stage := NewParseStage(&fakeFetcher{alert: fetched}, time.Second)
	pc := NewContext(pubsubPayload("gmail-123", ""))

	require.NoError(t, stage.Run(context.Background(), pc))

	assert.Equal(t, StatusParsed, pc.ProcessingStatus)
	require.NotNil(t, pc.Alert)
	assert.Equal(t, "full message body", pc.Alert.Content)
	assert.Equal(t, "gmail-123", pc.MessageID)
	assert.Equal(t, "alerts@trades.example.com", pc.Sender)
	assert.Equal(t, "Trade alert", pc.Metadata[datatypes.MetaSubject])
}

func TestParseStage_FetchErrorFailsStage(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(`{"snippet": "fallback content"}`))
	stage := NewParseStage(&fakeFetcher{err: errors.New("gmail unavailable")}, time.Second)
	pc := NewContext(pubsubPayload("msg-3", data))

	err := stage.Run(context.Background(), pc)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gmail unavailable")
	assert.Nil(t, pc.Alert, "a failed fetch must not install a fallback alert")
	assert.Equal(t, StatusReceived, pc.ProcessingStatus)
}

func TestParseStage_NoFetcher(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(`{"snippet": "payload only"}`))
	stage := NewParseStage(nil, 0)
	pc := NewContext(pubsubPayload("msg-5", data))

	require.NoError(t, stage.Run(context.Background(), pc))

	assert.Equal(t, "payload only", pc.Alert.Content)
	assert.Equal(t, "msg-5", pc.MessageID)
}

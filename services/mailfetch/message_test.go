// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mailfetch

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"google.golang.org/api/gmail/v1"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(inner map[string]any) map[string]any {
	data, _ := json.Marshal(inner)
	return map[string]any{
		"message": map[string]any{
			"data":        base64.RawURLEncoding.EncodeToString(data),
			"publishTime": "2026-08-30T12:00:00Z",
		},
	}
}

func TestDecodeNotification_HistoryID(t *testing.T) {
	raw := envelope(map[string]any{
		"emailAddress": "trader@gmail.com",
		"historyId":    123456,
	})

	ref, err := decodeNotification(raw)
	require.NoError(t, err)

	assert.Equal(t, uint64(123456), ref.HistoryID)
	assert.Equal(t, "trader@gmail.com", ref.EmailAddress)
	assert.Empty(t, ref.MessageID)
	assert.Equal(t, "2026-08-30T12:00:00Z", ref.PublishTime)
}

func TestDecodeNotification_HistoryIDAsString(t *testing.T) {
	ref, err := decodeNotification(envelope(map[string]any{"historyId": "98765"}))
	require.NoError(t, err)
	assert.Equal(t, uint64(98765), ref.HistoryID)
}

func TestDecodeNotification_DirectMessageID(t *testing.T) {
	ref, err := decodeNotification(envelope(map[string]any{"messageId": "gmail-abc"}))
	require.NoError(t, err)
	assert.Equal(t, "gmail-abc", ref.MessageID)
}

func TestDecodeNotification_AttributesFallback(t *testing.T) {
	raw := map[string]any{
		"message": map[string]any{
			"attributes": map[string]any{
				"messageId": "attr-msg-1",
				"historyId": "42",
			},
		},
	}

	ref, err := decodeNotification(raw)
	require.NoError(t, err)
	assert.Equal(t, "attr-msg-1", ref.MessageID)
	assert.Equal(t, uint64(42), ref.HistoryID)
}

func TestDecodeNotification_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"no envelope", map[string]any{"foo": "bar"}},
		{"bad base64", map[string]any{"message": map[string]any{"data": "!!!"}}},
		{"no reference", envelope(map[string]any{"emailAddress": "x@y.com"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeNotification(tt.raw)
			require.Error(t, err)
		})
	}
}

func bodyPart(mimeType, text string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mimeType,
		Body:     &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte(text))},
	}
}

func TestAlertFromMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "gmail-123",
		InternalDate: 1756555200000,
		Snippet:      "snippet text",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Trade Alerts <alerts@trades.example.com>"},
				{Name: "Subject", Value: "BUY signal"},
			},
			Parts: []*gmail.MessagePart{
				bodyPart("text/html", "<p>BUY 100 NVDA</p>"),
				bodyPart("text/plain", "BUY 100 NVDA"),
			},
		},
	}

	alert := alertFromMessage(msg, "2026-08-30T12:00:00Z")

	assert.Equal(t, datatypes.SourceMail, alert.Source)
	assert.Equal(t, "BUY 100 NVDA", alert.Content, "text/plain preferred over text/html")
	assert.Equal(t, "gmail-123", alert.StringMeta(datatypes.MetaMessageID, ""))
	assert.Equal(t, "Trade Alerts <alerts@trades.example.com>", alert.StringMeta(datatypes.MetaSender, ""))
	assert.Equal(t, "BUY signal", alert.StringMeta(datatypes.MetaSubject, ""))
	assert.Equal(t, "gmail_api", alert.StringMeta(datatypes.MetaParsingMethod, ""))
	require.NoError(t, alert.Validate())
}

func TestAlertFromMessage_SnippetFallback(t *testing.T) {
	msg := &gmail.Message{
		Id:      "gmail-9",
		Snippet: "only a snippet",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{{Name: "From", Value: "a@x.com"}},
		},
	}

	alert := alertFromMessage(msg, "")
	assert.Equal(t, "only a snippet", alert.Content)
}

func TestAlertFromMessage_BodilessMessagePlaceholder(t *testing.T) {
	msg := &gmail.Message{
		Id: "gmail-empty",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{{Name: "From", Value: "a@x.com"}},
		},
	}

	alert := alertFromMessage(msg, "")

	assert.NotEmpty(t, alert.Content)
	assert.Contains(t, alert.StringMeta(datatypes.MetaParsingNotes, ""), "no text body")
	require.NoError(t, alert.Validate())
}

func TestAlertFromMessage_TruncatesOversizedBody(t *testing.T) {
	big := make([]byte, datatypes.MaxContentLength+500)
	for i := range big {
		big[i] = 'x'
	}
	msg := &gmail.Message{
		Id:      "gmail-big",
		Payload: bodyPart("text/plain", string(big)),
	}

	alert := alertFromMessage(msg, "")

	assert.Len(t, alert.Content, datatypes.MaxContentLength)
	assert.Contains(t, alert.StringMeta(datatypes.MetaParsingNotes, ""), "truncated")
	require.NoError(t, alert.Validate())
}

func TestProviderWhitelistDelegation(t *testing.T) {
	p := &Provider{
		senderWhitelist: []string{"alerts@trades.example.com"},
		domainWhitelist: []string{"trades.example.com"},
	}

	assert.True(t, p.HasWhitelist())
	assert.True(t, p.ValidateSender("Alerts <alerts@trades.example.com>"))
	assert.False(t, p.ValidateSender("spam@evil.com"))
	assert.True(t, p.IsDomainWhitelisted("noreply@trades.example.com"))
	assert.False(t, p.IsDomainWhitelisted("noreply@nottrades.example.org"))

	empty := &Provider{}
	assert.False(t, empty.HasWhitelist())
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertValidate(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		alert   Alert
		wantErr string
	}{
		{
			name:  "valid alert",
			alert: NewAlert(SourceMail, "Buy AAPL at open", now, map[string]any{MetaSender: "a@x.com"}),
		},
		{
			name:    "empty source",
			alert:   NewAlert("", "Buy AAPL", now, nil),
			wantErr: "source",
		},
		{
			name:    "empty content",
			alert:   NewAlert(SourceMail, "", now, nil),
			wantErr: "content",
		},
		{
			name:    "content over cap",
			alert:   NewAlert(SourceMail, strings.Repeat("x", MaxContentLength+1), now, nil),
			wantErr: "exceeds",
		},
		{
			name:  "content exactly at cap",
			alert: NewAlert(SourceMail, strings.Repeat("x", MaxContentLength), now, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alert.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAlertValidate_NoTruncation(t *testing.T) {
	content := strings.Repeat("y", MaxContentLength+500)
	alert := NewAlert(SourceMail, content, time.Now().UTC(), nil)

	require.Error(t, alert.Validate())

	// The content must be flagged, never silently truncated.
	assert.Equal(t, content, alert.Content)
	assert.Len(t, alert.Content, MaxContentLength+500)
}

func TestNewAlert_CopiesMetadata(t *testing.T) {
	meta := map[string]any{MetaSender: "a@x.com"}
	alert := NewAlert(SourceMail, "hello", time.Now().UTC(), meta)

	meta[MetaSender] = "mutated@evil.com"

	assert.Equal(t, "a@x.com", alert.StringMeta(MetaSender, "unknown"))
}

func TestAlertWithMetadata(t *testing.T) {
	original := NewAlert(SourceMail, "Buy AAPL", time.Now().UTC(), map[string]any{
		MetaSender:  "a@x.com",
		MetaSubject: "alert",
	})

	enriched := original.WithMetadata(map[string]any{
		"llm_is_trading_alert": true,
		MetaSubject:            "overridden",
	})

	// Enriched copy carries both old and new keys; extra keys win.
	assert.Equal(t, "a@x.com", enriched.StringMeta(MetaSender, ""))
	assert.Equal(t, "overridden", enriched.StringMeta(MetaSubject, ""))
	assert.Equal(t, true, enriched.Metadata["llm_is_trading_alert"])

	// Original is untouched.
	assert.Equal(t, "alert", original.StringMeta(MetaSubject, ""))
	_, present := original.Metadata["llm_is_trading_alert"]
	assert.False(t, present)
}

func TestAlertStringMeta(t *testing.T) {
	alert := NewAlert(SourceMailBasic, "x", time.Now().UTC(), map[string]any{
		MetaSender: "a@x.com",
		"count":    3,
		"empty":    "",
	})

	assert.Equal(t, "a@x.com", alert.StringMeta(MetaSender, "unknown"))
	assert.Equal(t, "unknown", alert.StringMeta("missing", "unknown"))
	assert.Equal(t, "unknown", alert.StringMeta("count", "unknown"), "non-string values fall back")
	assert.Equal(t, "unknown", alert.StringMeta("empty", "unknown"), "empty strings fall back")
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the value objects that flow through the alert
// processing pipeline: the normalized Alert, the classifier's result, and
// the trade-action vocabulary.
package datatypes

import (
	"fmt"
	"time"
)

// MaxContentLength is the validation cap for alert content. Content longer
// than this is flagged invalid but never truncated - the original body is
// preserved for diagnostics.
const MaxContentLength = 10000

// Well-known metadata keys. Metadata is free-form; consumers must read
// these defensively and tolerate absence.
const (
	MetaMessageID     = "message_id"
	MetaSender        = "sender"
	MetaSubject       = "subject"
	MetaPublishTime   = "publish_time"
	MetaParsingMethod = "parsing_method"
	MetaParsingNotes  = "parsing_notes"
)

// Alert source tags.
const (
	// SourceMail marks alerts parsed with full mail API access.
	SourceMail = "mail"

	// SourceMailBasic marks alerts produced by the best-effort local
	// Pub/Sub decode path (no mail API available).
	SourceMailBasic = "mail-basic"

	// SourceMailMinimal marks the emergency fallback alert created when
	// even the basic parse could not assemble a normal Alert.
	SourceMailMinimal = "mail-minimal"
)

// Alert is the normalized representation of one inbound notification.
//
// An Alert is constructed once per notification and never mutated. Use
// WithMetadata to derive an enriched copy before logging.
type Alert struct {
	// Source identifies the origin channel, e.g. "mail" or "mail-basic".
	Source string `json:"source"`

	// Content is the textual body believed relevant to classification.
	Content string `json:"content"`

	// Timestamp is when the alert was observed.
	Timestamp time.Time `json:"timestamp"`

	// Metadata carries origin-specific fields (sender, subject, message
	// id, parsing notes). Keys are not fixed.
	Metadata map[string]any `json:"metadata"`
}

// NewAlert constructs an Alert with a defensive copy of the metadata map so
// callers cannot mutate the alert after construction.
func NewAlert(source, content string, ts time.Time, metadata map[string]any) Alert {
	return Alert{
		Source:    source,
		Content:   content,
		Timestamp: ts,
		Metadata:  copyMetadata(metadata),
	}
}

// Validate checks the alert's structural invariants. A failed validation
// does not modify the alert: over-long content is reported, not truncated.
func (a Alert) Validate() error {
	if a.Source == "" {
		return fmt.Errorf("alert source must not be empty")
	}
	if a.Content == "" {
		return fmt.Errorf("alert content must not be empty")
	}
	if len(a.Content) > MaxContentLength {
		return fmt.Errorf("alert content exceeds %d characters (got %d)", MaxContentLength, len(a.Content))
	}
	return nil
}

// WithMetadata returns a new Alert whose metadata is this alert's metadata
// merged with extra. The receiver is unchanged; keys in extra win.
func (a Alert) WithMetadata(extra map[string]any) Alert {
	merged := copyMetadata(a.Metadata)
	for k, v := range extra {
		merged[k] = v
	}
	return Alert{
		Source:    a.Source,
		Content:   a.Content,
		Timestamp: a.Timestamp,
		Metadata:  merged,
	}
}

// StringMeta reads a metadata key as a string, returning fallback when the
// key is absent or not a string.
func (a Alert) StringMeta(key, fallback string) string {
	if v, ok := a.Metadata[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

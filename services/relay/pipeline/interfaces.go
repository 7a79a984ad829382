// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
)

// The pipeline resolves its collaborators by name from the service
// container and asserts them against these consumer-side interfaces.
// A collaborator that is missing, unhealthy, or of the wrong shape is
// treated as unavailable, never as a crash.

// MailFetcher turns a raw notification payload into a structured alert
// and answers sender whitelist questions.
type MailFetcher interface {
	// ParseAlert resolves the inbound payload into an Alert, fetching the
	// referenced mail message when the payload carries a message id.
	ParseAlert(ctx context.Context, raw map[string]any) (datatypes.Alert, error)

	// ValidateSender reports whether the sender passes the address
	// whitelist.
	ValidateSender(sender string) bool

	// IsDomainWhitelisted reports whether the sender's domain passes the
	// domain whitelist.
	IsDomainWhitelisted(sender string) bool

	// HasWhitelist reports whether any whitelist is configured at all.
	HasWhitelist() bool
}

// Classifier decides whether alert content describes trading activity and
// extracts the structured trades.
type Classifier interface {
	Classify(ctx context.Context, content string) (datatypes.ClassificationResult, error)
}

// AlertSink persists one row per processed notification.
type AlertSink interface {
	AppendAlert(ctx context.Context, rec AlertRecord) error
}

// ClassificationSink persists one row per classification attempt.
type ClassificationSink interface {
	AppendClassification(ctx context.Context, rec ClassificationRecord) error
}

// AlertRecord is the flattened row handed to the alert sink.
type AlertRecord struct {
	Timestamp        string
	MessageID        string
	Sender           string
	Source           string
	Content          string
	WhitelistStatus  string
	ProcessingStatus string
	ErrorMessage     string
	Metadata         map[string]any
}

// ClassificationRecord is the flattened row handed to the classification
// sink.
type ClassificationRecord struct {
	Timestamp      string
	MessageID      string
	Sender         string
	Provider       string
	IsTradingAlert bool
	Trades         []datatypes.Trade
	RawResponse    string
	DurationMS     float64
	ErrorMessage   string
}

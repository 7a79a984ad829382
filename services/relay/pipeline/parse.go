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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
	"github.com/google/uuid"
)

// StageNameParse identifies the parse stage.
const StageNameParse = "parse_alert"

// ParseStage turns the raw notification payload into a structured alert.
//
// When a mail provider is available, the referenced message is fetched in
// full and a fetch failure fails the stage. Without one, the stage falls
// back to a best-effort decode of the payload itself; that path never
// fails the run, and the worst case is a minimal placeholder alert.
type ParseStage struct {
	fetcher      MailFetcher
	fetchTimeout time.Duration
}

var _ Stage = (*ParseStage)(nil)

// NewParseStage creates the parse stage. fetcher may be nil; timeout
// bounds the outbound mail fetch.
func NewParseStage(fetcher MailFetcher, timeout time.Duration) *ParseStage {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ParseStage{fetcher: fetcher, fetchTimeout: timeout}
}

func (s *ParseStage) Name() string     { return StageNameParse }
func (s *ParseStage) AlwaysRuns() bool { return false }

func (s *ParseStage) Run(ctx context.Context, pc *Context) error {
	if s.fetcher != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		alert, err := s.fetcher.ParseAlert(fetchCtx, pc.RawData)
		cancel()
		if err != nil {
			return fmt.Errorf("mail fetch failed: %w", err)
		}
		s.adopt(pc, alert)
		return nil
	}

	s.adopt(pc, parsePayload(pc.RawData))
	return nil
}

// adopt installs the alert on the context and lifts the identifying
// metadata so it survives even if the alert is lost downstream.
func (s *ParseStage) adopt(pc *Context, alert datatypes.Alert) {
	pc.Alert = &alert
	pc.MessageID = alert.StringMeta(datatypes.MetaMessageID, "unknown")
	pc.Sender = alert.StringMeta(datatypes.MetaSender, "unknown")
	for k, v := range alert.Metadata {
		pc.Metadata[k] = v
	}
	pc.ProcessingStatus = StatusParsed
}

// =============================================================================
// Payload-only parsing
// =============================================================================

// parsePayload decodes a Pub/Sub-style push payload without touching the
// mail API. It cascades through progressively weaker strategies and
// always produces an alert.
func parsePayload(raw map[string]any) datatypes.Alert {
	if len(raw) == 0 {
		return minimalAlert("empty notification payload")
	}

	msg, ok := raw["message"].(map[string]any)
	if !ok {
		msg = map[string]any{}
	}

	messageID := stringField(msg, "messageId")
	if messageID == "" {
		messageID = stringField(msg, "message_id")
	}
	notes := []string{}
	if messageID == "" {
		messageID = "no-id-" + uuid.NewString()[:8]
		notes = append(notes, "message id synthesized")
	}

	content, method, extra, contentNotes := extractContent(msg, raw)
	notes = append(notes, contentNotes...)

	metadata := map[string]any{
		datatypes.MetaMessageID:     messageID,
		datatypes.MetaParsingMethod: method,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if pt := stringField(msg, "publishTime"); pt != "" {
		metadata[datatypes.MetaPublishTime] = pt
	}
	if len(notes) > 0 {
		metadata[datatypes.MetaParsingNotes] = strings.Join(notes, "; ")
	}

	return datatypes.NewAlert(datatypes.SourceMailBasic, content, time.Now().UTC(), metadata)
}

// extractContent pulls human-readable text out of the message envelope.
// The extra map carries sender and subject when the data blob declares
// them.
func extractContent(msg, raw map[string]any) (content, method string, extra map[string]any, notes []string) {
	if data := stringField(msg, "data"); data != "" {
		if decoded, ok := decodeBase64(data); ok {
			if text, meta := textFromJSON(decoded); text != "" {
				return text, "basic_pubsub", meta, nil
			}
			return decoded, "basic_pubsub", nil, []string{"data field was not JSON"}
		}
		notes = append(notes, "data field was not valid base64")
	}

	if attrs, ok := msg["attributes"].(map[string]any); ok && len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s=%v", k, attrs[k]))
		}
		notes = append(notes, "content built from message attributes")
		return strings.Join(lines, "\n"), "attributes", nil, notes
	}

	notes = append(notes, "no decodable content, payload stringified")
	return fmt.Sprintf("%v", raw), "raw_payload", nil, notes
}

// textFromJSON returns the first recognized text field of a JSON object,
// plus any sender/subject metadata the object declares. Empty text means
// the input is not a JSON object or carries no known field.
func textFromJSON(data string) (string, map[string]any) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return "", nil
	}

	var meta map[string]any
	if v, ok := obj["sender"].(string); ok && v != "" {
		meta = map[string]any{datatypes.MetaSender: v}
	}
	if v, ok := obj["subject"].(string); ok && v != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta[datatypes.MetaSubject] = v
	}

	for _, key := range []string{"snippet", "body", "content", "text"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return v, meta
		}
	}
	return "", nil
}

// decodeBase64 accepts both standard and URL-safe alphabets, with or
// without padding. Pub/Sub uses URL-safe; tests and manual payloads tend
// to use standard.
func decodeBase64(data string) (string, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded), true
		}
	}
	return "", false
}

func minimalAlert(reason string) datatypes.Alert {
	return datatypes.NewAlert(datatypes.SourceMailMinimal, "unparseable notification", time.Now().UTC(), map[string]any{
		datatypes.MetaMessageID:     "no-id-" + uuid.NewString()[:8],
		datatypes.MetaParsingMethod: "minimal",
		datatypes.MetaParsingNotes:  reason,
	})
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

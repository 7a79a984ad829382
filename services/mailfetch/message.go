// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mailfetch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
)

// notificationRef is what a Pub/Sub push notification actually tells us:
// a pointer to mail, not the mail itself.
type notificationRef struct {
	MessageID    string
	HistoryID    uint64
	EmailAddress string
	PublishTime  string
}

// decodeNotification unwraps the Pub/Sub envelope. Gmail watch
// notifications carry base64 JSON with emailAddress and historyId;
// synthetic payloads (tests, the manual endpoint) may carry a messageId
// directly.
func decodeNotification(raw map[string]any) (notificationRef, error) {
	msg, ok := raw["message"].(map[string]any)
	if !ok {
		return notificationRef{}, fmt.Errorf("payload has no message envelope")
	}

	ref := notificationRef{}
	if pt, ok := msg["publishTime"].(string); ok {
		ref.PublishTime = pt
	}

	if data, ok := msg["data"].(string); ok && data != "" {
		decoded, err := decodeWebSafe(data)
		if err != nil {
			return notificationRef{}, fmt.Errorf("notification data is not valid base64: %w", err)
		}
		var inner map[string]any
		if err := json.Unmarshal(decoded, &inner); err != nil {
			return notificationRef{}, fmt.Errorf("notification data is not valid JSON: %w", err)
		}
		if v, ok := inner["messageId"].(string); ok {
			ref.MessageID = v
		}
		if v, ok := inner["emailAddress"].(string); ok {
			ref.EmailAddress = v
		}
		ref.HistoryID = numericField(inner, "historyId")
	}

	// Attribute fallback for senders that put the reference next to the
	// data blob instead of inside it.
	if attrs, ok := msg["attributes"].(map[string]any); ok {
		if ref.MessageID == "" {
			if v, ok := attrs["messageId"].(string); ok {
				ref.MessageID = v
			}
		}
		if ref.HistoryID == 0 {
			ref.HistoryID = numericField(attrs, "historyId")
		}
	}

	if ref.MessageID == "" && ref.HistoryID == 0 {
		return notificationRef{}, fmt.Errorf("notification carries no message reference")
	}
	return ref, nil
}

// alertFromMessage normalizes a fetched Gmail message into an Alert.
func alertFromMessage(msg *gmail.Message, publishTime string) datatypes.Alert {
	sender := headerValue(msg.Payload, "From")
	subject := headerValue(msg.Payload, "Subject")

	content := extractBody(msg.Payload)
	if content == "" {
		content = msg.Snippet
	}

	metadata := map[string]any{
		datatypes.MetaMessageID:     msg.Id,
		datatypes.MetaSender:        sender,
		datatypes.MetaSubject:       subject,
		datatypes.MetaParsingMethod: "gmail_api",
	}
	if publishTime != "" {
		metadata[datatypes.MetaPublishTime] = publishTime
	}

	var notes []string
	if content == "" {
		// Content must never be empty, even for bodiless messages.
		content = "(message has no readable text)"
		notes = append(notes, "no text body or snippet")
	}
	if len(content) > datatypes.MaxContentLength {
		content = content[:datatypes.MaxContentLength]
		notes = append(notes, "content truncated to size cap")
	}
	if len(notes) > 0 {
		metadata[datatypes.MetaParsingNotes] = strings.Join(notes, "; ")
	}

	ts := time.Now().UTC()
	if msg.InternalDate > 0 {
		ts = time.UnixMilli(msg.InternalDate).UTC()
	}

	return datatypes.NewAlert(datatypes.SourceMail, content, ts, metadata)
}

// extractBody walks the MIME tree and returns the first text/plain body,
// falling back to text/html.
func extractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if body := findBody(part, "text/plain"); body != "" {
		return body
	}
	return findBody(part, "text/html")
}

func findBody(part *gmail.MessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		if decoded, err := decodeWebSafe(part.Body.Data); err == nil {
			return string(decoded)
		}
	}
	for _, child := range part.Parts {
		if body := findBody(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func headerValue(part *gmail.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decodeWebSafe handles the unpadded URL-safe base64 the Gmail API uses,
// plus the standard alphabet for synthetic payloads.
func decodeWebSafe(data string) ([]byte, error) {
	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.StdEncoding,
	} {
		decoded, err := enc.DecodeString(data)
		if err == nil {
			return decoded, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// numericField coerces a JSON field that providers send as either a
// number or a string.
func numericField(m map[string]any, key string) uint64 {
	switch v := m[key].(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	case json.Number:
		if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

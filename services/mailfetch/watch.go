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
	"context"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
)

// WatchInfo describes an active Gmail watch registration.
type WatchInfo struct {
	HistoryID  uint64    `json:"history_id"`
	Expiration time.Time `json:"expiration"`
	Topic      string    `json:"topic"`
}

// StartWatch registers the mailbox INBOX with a Pub/Sub topic. Gmail
// expires watches after about seven days; callers re-run this before
// expiry.
func (p *Provider) StartWatch(ctx context.Context, projectID, topic string) (WatchInfo, error) {
	topicName := fmt.Sprintf("projects/%s/topics/%s", projectID, topic)

	resp, err := p.svc.Watch("me", &gmail.WatchRequest{
		LabelIds:  []string{"INBOX"},
		TopicName: topicName,
	}).Context(ctx).Do()
	if err != nil {
		return WatchInfo{}, fmt.Errorf("register gmail watch on %s: %w", topicName, err)
	}

	return WatchInfo{
		HistoryID:  resp.HistoryId,
		Expiration: time.UnixMilli(resp.Expiration),
		Topic:      topicName,
	}, nil
}

// StopWatch removes the mailbox's watch registration.
func (p *Provider) StopWatch(ctx context.Context) error {
	if err := p.svc.Stop("me").Context(ctx).Do(); err != nil {
		return fmt.Errorf("stop gmail watch: %w", err)
	}
	return nil
}

// Profile returns the mailbox profile, used by the status command to
// verify connectivity.
func (p *Provider) Profile(ctx context.Context) (*gmail.Profile, error) {
	profile, err := p.svc.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch gmail profile: %w", err)
	}
	return profile, nil
}

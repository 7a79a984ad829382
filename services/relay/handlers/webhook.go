// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/tradeflow/services/relay/observability"
	"github.com/AleutianAI/tradeflow/services/relay/pipeline"
)

// Dispatcher runs pipeline work off the request goroutine so the webhook
// can acknowledge immediately. Concurrency is bounded by a weighted
// semaphore; above the bound, dispatch goroutines queue for a slot rather
// than dropping notifications.
type Dispatcher struct {
	pipeline *pipeline.Pipeline
	sem      *semaphore.Weighted
}

// NewDispatcher creates a dispatcher processing at most maxConcurrent
// notifications at a time.
func NewDispatcher(p *pipeline.Pipeline, maxConcurrent int64) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Dispatcher{
		pipeline: p,
		sem:      semaphore.NewWeighted(maxConcurrent),
	}
}

// Dispatch processes the payload in the background. The processing
// context is detached from the HTTP request: the push sender got its ack,
// and a dropped webhook connection must not cancel the run.
func (d *Dispatcher) Dispatch(raw map[string]any) {
	go func() {
		ctx := context.Background()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)
		d.pipeline.Process(ctx, raw)
	}()
}

// ProcessSync runs the pipeline inline and returns the finished context.
// Used by the manual endpoint, where the caller wants the outcome.
func (d *Dispatcher) ProcessSync(ctx context.Context, raw map[string]any) *pipeline.Context {
	return d.pipeline.Process(ctx, raw)
}

// HandleGmailWebhook accepts Pub/Sub push notifications.
//
// The contract with Pub/Sub: a 2xx acknowledges the notification, any
// other status triggers redelivery. Processing failures are therefore
// never surfaced here; only a payload that is not a notification at all
// gets a 400 so Pub/Sub drops it instead of retrying forever.
func HandleGmailWebhook(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			observability.NotificationsRejected.WithLabelValues("invalid_json").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not valid JSON"})
			return
		}

		if _, ok := payload["message"]; !ok {
			observability.NotificationsRejected.WithLabelValues("missing_message").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload has no message field"})
			return
		}

		observability.NotificationsReceived.WithLabelValues("webhook_gmail").Inc()
		slog.Info("Accepted notification", "remote", c.ClientIP())
		d.Dispatch(payload)

		c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	}
}

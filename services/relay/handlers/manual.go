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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/tradeflow/services/relay/observability"
)

// ManualAlertRequest is the body of the manual testing endpoint.
type ManualAlertRequest struct {
	Content string `json:"content" binding:"required"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
}

// HandleManualAlert synthesizes a push notification from hand-written
// alert content and runs it through the full pipeline inline. Meant for
// operators verifying the deployment without sending real mail.
func HandleManualAlert(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ManualAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
			return
		}

		observability.NotificationsReceived.WithLabelValues("manual_alert").Inc()

		payload := synthesizeNotification(req)
		pc := d.ProcessSync(c.Request.Context(), payload)

		c.JSON(http.StatusOK, gin.H{
			"status":  "processed",
			"summary": pc.Summary(),
		})
	}
}

// synthesizeNotification wraps manual content in the same envelope a real
// push notification uses, so the pipeline exercises its normal path.
func synthesizeNotification(req ManualAlertRequest) map[string]any {
	inner := map[string]any{"snippet": req.Content}
	if req.Sender != "" {
		inner["sender"] = req.Sender
	}
	if req.Subject != "" {
		inner["subject"] = req.Subject
	}
	data, _ := json.Marshal(inner)

	return map[string]any{
		"message": map[string]any{
			"messageId":   "manual-" + uuid.NewString()[:8],
			"publishTime": time.Now().UTC().Format(time.RFC3339),
			"data":        base64.StdEncoding.EncodeToString(data),
		},
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/tradeflow/services/relay/pipeline"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p, err := pipeline.NewMinimal()
	require.NoError(t, err)
	d := NewDispatcher(p, 2)

	router := gin.New()
	router.POST("/webhook/gmail", HandleGmailWebhook(d))
	router.POST("/manual-alert", HandleManualAlert(d))
	router.GET("/health", HealthCheck("test"))
	router.GET("/", HandleRoot("test", "test"))
	return router
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook_InvalidJSON(t *testing.T) {
	router := testRouter(t)

	w := post(router, "/webhook/gmail", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not valid JSON")
}

func TestWebhook_MissingMessageField(t *testing.T) {
	router := testRouter(t)

	w := post(router, "/webhook/gmail", `{"subscription": "projects/x/subscriptions/y"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no message field")
}

func TestWebhook_AcceptsNotification(t *testing.T) {
	router := testRouter(t)

	w := post(router, "/webhook/gmail", `{"message": {"messageId": "m-1", "data": ""}}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
}

func TestWebhook_AcknowledgesEvenWhenProcessingWillFail(t *testing.T) {
	router := testRouter(t)

	// An empty message envelope parses to a placeholder alert; the ack
	// must not depend on pipeline outcome.
	w := post(router, "/webhook/gmail", `{"message": {}}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestManualAlert_RequiresContent(t *testing.T) {
	router := testRouter(t)

	w := post(router, "/manual-alert", `{"sender": "a@x.com"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManualAlert_ProcessesInline(t *testing.T) {
	router := testRouter(t)

	w := post(router, "/manual-alert", `{"content": "BUY 100 NVDA", "sender": "alerts@trades.example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string         `json:"status"`
		Summary map[string]any `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "processed", resp.Status)
	assert.Equal(t, "completed", resp.Summary["processing_status"])
	assert.Equal(t, "alerts@trades.example.com", resp.Summary["sender"])
	assert.Contains(t, resp.Summary["message_id"], "manual-")
}

func TestHealthCheck(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRoot(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tradeflow-relay")
	assert.Contains(t, w.Body.String(), "/webhook/gmail")
}

func TestSynthesizeNotification_RoundTrips(t *testing.T) {
	payload := synthesizeNotification(ManualAlertRequest{
		Content: "SELL all AAPL",
		Sender:  "trader@example.com",
		Subject: "exit",
	})

	msg, ok := payload["message"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, msg["messageId"], "manual-")
	assert.NotEmpty(t, msg["data"])
	assert.NotEmpty(t, msg["publishTime"])
}

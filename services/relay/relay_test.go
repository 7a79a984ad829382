// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/tradeflow/services/relay/services"
)

// newTestService builds a relay with no collaborators configured: the
// degraded mode every piece of the stack must tolerate.
func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := New(Config{GinMode: "test", Services: services.ApplyDefaults(services.Config{})})
	require.NoError(t, err)
	return svc
}

func TestNew_DegradedModeStillServes(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookEndToEnd_NoCollaborators(t *testing.T) {
	svc := newTestService(t)

	body := `{"message": {"messageId": "m-1", "data": ""}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/gmail", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accepted")
}

func TestServicesEndpoint(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "registered_services")
	assert.Contains(t, w.Body.String(), "classifier")
}

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, int64(8), cfg.MaxConcurrent)
}

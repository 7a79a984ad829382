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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tradeflow/services/relay/services"
)

// HandleRoot describes the service and its endpoints.
func HandleRoot(version, environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "tradeflow-relay",
			"version":     version,
			"environment": environment,
			"endpoints": gin.H{
				"webhook":  "POST /webhook/gmail",
				"manual":   "POST /manual-alert",
				"health":   "GET /health",
				"services": "GET /services",
				"metrics":  "GET /metrics",
			},
		})
	}
}

// HealthCheck reports liveness. Collaborator health is deliberately not
// consulted here: a dead spreadsheet must not make the pod restart.
func HealthCheck(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HandleServices exposes the container's diagnostic snapshot.
func HandleServices(container *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, container.ServiceInfo())
	}
}

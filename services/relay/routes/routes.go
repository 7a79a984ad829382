// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/tradeflow/services/relay/handlers"
	"github.com/AleutianAI/tradeflow/services/relay/services"
)

// SetupRoutes registers the relay's HTTP surface.
func SetupRoutes(router *gin.Engine, container *services.Container,
	dispatcher *handlers.Dispatcher, version string) {

	cfg := container.Config()

	router.GET("/", handlers.HandleRoot(version, cfg.Environment))
	router.GET("/health", handlers.HealthCheck(version))
	router.GET("/services", handlers.HandleServices(container))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhook/gmail", handlers.HandleGmailWebhook(dispatcher))
	router.POST("/manual-alert", handlers.HandleManualAlert(dispatcher))
}

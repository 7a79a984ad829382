// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command webhook runs the notification relay HTTP server.
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/tradeflow/services/relay"
	"github.com/AleutianAI/tradeflow/services/relay/services"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables, optionally overlaid
	// from a YAML config file.
	svcCfg := services.FromEnv()
	if path := os.Getenv("RELAY_CONFIG_FILE"); path != "" {
		var err error
		svcCfg, err = services.LoadFile(svcCfg, path)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}

	cfg := relay.Config{
		Port:          getEnvInt("PORT", 8000),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:       os.Getenv("GIN_MODE"),
		MaxConcurrent: int64(getEnvInt("RELAY_MAX_CONCURRENT", 8)),
		Services:      svcCfg,
	}

	slog.Info("Starting relay",
		"port", cfg.Port,
		"environment", svcCfg.Environment,
		"max_concurrent", cfg.MaxConcurrent,
	)

	svc, err := relay.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create relay: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Relay error: %v", err)
	}
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/tradeflow/services/classifier"
	"github.com/AleutianAI/tradeflow/services/mailfetch"
	"github.com/AleutianAI/tradeflow/services/sheets"
)

// Canonical service names. Pipeline stages resolve collaborators by these
// names through Container.GetOptional.
const (
	ServiceMailProvider      = "mail_provider"
	ServiceClassifier        = "classifier"
	ServiceAlertLog          = "alert_log"
	ServiceClassificationLog = "classification_log"
)

// NewDefaultContainer creates a container with all standard factories
// registered. Configuration problems are logged, not fatal: a collaborator
// whose configuration is incomplete simply stays unavailable.
func NewDefaultContainer(cfg Config) *Container {
	if err := cfg.Validate(); err != nil {
		slog.Warn("Service configuration incomplete", "problems", err.Error())
	}

	c := NewContainer(cfg)
	c.RegisterFactory(ServiceMailProvider, createMailProvider)
	c.RegisterFactory(ServiceClassifier, createClassifier)
	c.RegisterFactory(ServiceAlertLog, createAlertLog)
	c.RegisterFactory(ServiceClassificationLog, createClassificationLog)
	return c
}

func createMailProvider(cfg Config) (any, error) {
	if cfg.MailCredentialsFile == "" {
		return nil, fmt.Errorf("mail credentials file not configured")
	}
	return mailfetch.NewProvider(context.Background(), mailfetch.Options{
		CredentialsFile: cfg.MailCredentialsFile,
		TokenFile:       cfg.MailTokenFile,
		SenderWhitelist: cfg.SenderWhitelist,
		DomainWhitelist: cfg.DomainWhitelist,
	})
}

func createClassifier(cfg Config) (any, error) {
	if cfg.OpenAIAPIKey == "" && cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("no LLM API key configured")
	}
	return classifier.New(classifier.Options{
		AnthropicAPIKey:      cfg.AnthropicAPIKey,
		AnthropicModel:       cfg.AnthropicModel,
		AnthropicMaxTokens:   cfg.AnthropicMaxTokens,
		AnthropicTemperature: cfg.AnthropicTemperature,
		OpenAIAPIKey:         cfg.OpenAIAPIKey,
		OpenAIModel:          cfg.OpenAIModel,
		OpenAIMaxTokens:      cfg.OpenAIMaxTokens,
		OpenAITemperature:    cfg.OpenAITemperature,
	})
}

func createAlertLog(cfg Config) (any, error) {
	if cfg.SheetsCredentialsFile == "" || cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets logging not configured")
	}
	return sheets.NewAlertLog(context.Background(), cfg.SheetsCredentialsFile, cfg.SpreadsheetID, cfg.AlertWorksheet)
}

func createClassificationLog(cfg Config) (any, error) {
	if cfg.SheetsCredentialsFile == "" || cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets logging not configured")
	}
	return sheets.NewClassificationLog(context.Background(), cfg.SheetsCredentialsFile, cfg.SpreadsheetID, cfg.ClassificationWorksheet)
}

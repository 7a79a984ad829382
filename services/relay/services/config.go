// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services implements the relay's service layer: configuration,
// the lazy service container, and the factories that wire the optional
// collaborators (mail provider, classifier, log sinks).
package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for all service-layer collaborators.
//
// All fields are optional: missing configuration disables the matching
// collaborator rather than failing startup. Values come from environment
// variables (FromEnv), optionally overlaid from a YAML file (LoadFile).
type Config struct {
	// Mail provider configuration.
	MailCredentialsFile string   `yaml:"mail_credentials_file"`
	MailTokenFile       string   `yaml:"mail_token_file"`
	SenderWhitelist     []string `yaml:"sender_whitelist"`
	DomainWhitelist     []string `yaml:"domain_whitelist"`

	// LLM provider configuration. The classifier prefers Anthropic and
	// falls back to OpenAI when both are configured.
	OpenAIAPIKey      string  `yaml:"openai_api_key"`
	OpenAIModel       string  `yaml:"openai_model"`
	OpenAIMaxTokens   int     `yaml:"openai_max_tokens"`
	OpenAITemperature float32 `yaml:"openai_temperature"`

	AnthropicAPIKey      string  `yaml:"anthropic_api_key"`
	AnthropicModel       string  `yaml:"anthropic_model"`
	AnthropicMaxTokens   int     `yaml:"anthropic_max_tokens"`
	AnthropicTemperature float32 `yaml:"anthropic_temperature"`

	// Google Sheets log sink configuration.
	SheetsCredentialsFile   string `yaml:"sheets_credentials_file"`
	SpreadsheetID           string `yaml:"spreadsheet_id"`
	AlertWorksheet          string `yaml:"alert_worksheet"`
	ClassificationWorksheet string `yaml:"classification_worksheet"`

	// Timeout boundaries around the two external pipeline calls.
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	ClassifyTimeout time.Duration `yaml:"classify_timeout"`

	// Environment settings.
	Debug       bool   `yaml:"debug"`
	Environment string `yaml:"environment"`
}

// FromEnv builds a Config from environment variables with defaults applied.
func FromEnv() Config {
	cfg := Config{
		MailCredentialsFile: os.Getenv("GMAIL_CREDENTIALS_FILE"),
		MailTokenFile:       os.Getenv("GMAIL_TOKEN_FILE"),
		SenderWhitelist:     splitList(os.Getenv("GMAIL_SENDER_WHITELIST")),
		DomainWhitelist:     splitList(os.Getenv("GMAIL_DOMAIN_WHITELIST")),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     os.Getenv("ANTHROPIC_MODEL"),
		OpenAIMaxTokens:    envInt("OPENAI_MAX_TOKENS", 0),
		AnthropicMaxTokens: envInt("ANTHROPIC_MAX_TOKENS", 0),

		SheetsCredentialsFile:   os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		SpreadsheetID:           os.Getenv("GOOGLE_SHEETS_DOC_ID"),
		AlertWorksheet:          os.Getenv("GOOGLE_SHEETS_WORKSHEET"),
		ClassificationWorksheet: os.Getenv("GOOGLE_SHEETS_LLM_WORKSHEET"),

		Debug:       os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1",
		Environment: os.Getenv("ENVIRONMENT"),
	}
	return ApplyDefaults(cfg)
}

// LoadFile overlays values from a YAML config file onto cfg. Only fields
// present in the file are overridden.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return ApplyDefaults(cfg), nil
}

// ApplyDefaults fills in missing configuration values.
func ApplyDefaults(cfg Config) Config {
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.OpenAIMaxTokens == 0 {
		cfg.OpenAIMaxTokens = 1000
	}
	if cfg.AnthropicModel == "" {
		cfg.AnthropicModel = "claude-3-5-sonnet-20241022"
	}
	if cfg.AnthropicMaxTokens == 0 {
		cfg.AnthropicMaxTokens = 1000
	}
	if cfg.AlertWorksheet == "" {
		cfg.AlertWorksheet = "TradeLog"
	}
	if cfg.ClassificationWorksheet == "" {
		cfg.ClassificationWorksheet = "LLMParsingLog"
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.ClassifyTimeout == 0 {
		cfg.ClassifyTimeout = 60 * time.Second
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	return cfg
}

// Validate reports configuration problems. Failures are advisory: callers
// log them and continue, because every collaborator is optional.
func (c Config) Validate() error {
	var problems []string

	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		problems = append(problems, "no LLM API key configured (classification disabled)")
	}
	if (len(c.SenderWhitelist) > 0 || len(c.DomainWhitelist) > 0) && c.MailCredentialsFile == "" {
		problems = append(problems, "whitelists configured without mail credentials file")
	}
	if c.SheetsCredentialsFile == "" || c.SpreadsheetID == "" {
		problems = append(problems, "sheets credentials or spreadsheet id missing (logging disabled)")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a loggable summary of the configuration with secrets
// masked. Safe to expose on the service inventory endpoint.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"mail_credentials_file":    c.MailCredentialsFile,
		"mail_token_file":          c.MailTokenFile,
		"sender_whitelist_size":    len(c.SenderWhitelist),
		"domain_whitelist_size":    len(c.DomainWhitelist),
		"openai_api_key":           redact(c.OpenAIAPIKey),
		"openai_model":             c.OpenAIModel,
		"anthropic_api_key":        redact(c.AnthropicAPIKey),
		"anthropic_model":          c.AnthropicModel,
		"sheets_credentials_file":  c.SheetsCredentialsFile,
		"spreadsheet_id":           c.SpreadsheetID,
		"alert_worksheet":          c.AlertWorksheet,
		"classification_worksheet": c.ClassificationWorksheet,
		"fetch_timeout":            c.FetchTimeout.String(),
		"classify_timeout":         c.ClassifyTimeout.String(),
		"debug":                    c.Debug,
		"environment":              c.Environment,
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "***REDACTED***"
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

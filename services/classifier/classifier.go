// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// # Description
//
// Package classifier decides whether alert content describes trading
// activity and extracts the structured trades. It layers prompt
// construction and response interpretation over the raw llm clients.
//
// # Inputs
//
// Plain alert text, already size-capped upstream.
//
// # Outputs
//
// A datatypes.ClassificationResult tagged with the provider that produced
// it. Structural failures (the model answered, but the answer could not
// be interpreted) are reported on the result, not as a Go error; a Go
// error means every configured provider failed at the transport level.
//
// # Assumptions
//
// Providers are tried in fixed preference order: Anthropic first, then
// OpenAI. At least one must be configured.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/tradeflow/services/llm"
	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
)

// Options configures the classifier's provider backends. A provider with
// an empty API key is simply not configured.
type Options struct {
	AnthropicAPIKey      string
	AnthropicModel       string
	AnthropicMaxTokens   int
	AnthropicTemperature float32

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float32
}

// backend pairs an llm client with its result attribution tag.
type backend struct {
	client      llm.Client
	provider    datatypes.Provider
	temperature float32
}

// Classifier classifies alert content using the first available LLM
// provider, falling back down the preference order on transport failure.
type Classifier struct {
	backends []backend
}

// New creates a classifier from the configured providers.
func New(opts Options) (*Classifier, error) {
	var backends []backend

	if opts.AnthropicAPIKey != "" {
		client, err := llm.NewAnthropicClient(llm.AnthropicOptions{
			APIKey:    opts.AnthropicAPIKey,
			Model:     opts.AnthropicModel,
			MaxTokens: opts.AnthropicMaxTokens,
		})
		if err != nil {
			slog.Warn("Anthropic client unavailable", "error", err)
		} else {
			backends = append(backends, backend{client, datatypes.ProviderAnthropic, opts.AnthropicTemperature})
		}
	}

	if opts.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(llm.OpenAIOptions{
			APIKey:    opts.OpenAIAPIKey,
			Model:     opts.OpenAIModel,
			MaxTokens: opts.OpenAIMaxTokens,
		})
		if err != nil {
			slog.Warn("OpenAI client unavailable", "error", err)
		} else {
			backends = append(backends, backend{client, datatypes.ProviderOpenAI, opts.OpenAITemperature})
		}
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	slog.Info("Classifier initialized", "providers", len(backends))
	return &Classifier{backends: backends}, nil
}

// IsHealthy reports whether at least one provider backend exists.
func (c *Classifier) IsHealthy() bool {
	return len(c.backends) > 0
}

// Classify runs the classification prompt against the preferred provider,
// falling back to the next on transport failure.
func (c *Classifier) Classify(ctx context.Context, content string) (datatypes.ClassificationResult, error) {
	var failures []error

	for _, b := range c.backends {
		params := llm.GenerationParams{}
		if b.temperature > 0 {
			temp := b.temperature
			params.Temperature = &temp
		}

		text, err := b.client.Generate(ctx, systemPrompt, userPrompt(content), params)
		if err != nil {
			slog.Warn("Provider call failed, trying next",
				"provider", string(b.provider), "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", b.client.Name(), err))
			continue
		}
		return parseResponse(text, b.provider), nil
	}

	return datatypes.ClassificationResult{Provider: datatypes.ProviderError},
		fmt.Errorf("all providers failed: %w", errors.Join(failures...))
}

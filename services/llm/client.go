// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides thin clients for the hosted LLM providers the
// classifier can use. Clients are transport only: prompt construction and
// response interpretation live in the classifier.
package llm

import "context"

// GenerationParams are the per-call sampling knobs. Nil pointers mean
// "use the provider default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client is the standard interface for any LLM backend.
type Client interface {
	// Generate sends a single-turn prompt and returns the model's text.
	// An error return always means transport or provider failure, never
	// "the model said something unexpected".
	Generate(ctx context.Context, system, prompt string, params GenerationParams) (string, error)

	// Name identifies the backend in logs and result attribution.
	Name() string
}

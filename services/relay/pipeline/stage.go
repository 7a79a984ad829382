// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import "context"

// Stage is one step of the processing pipeline. Stages mutate the
// per-run Context; an error return means the stage itself failed and the
// orchestrator converts it into an error status on the context.
type Stage interface {
	// Name identifies the stage in logs and completion tracking.
	Name() string

	// Run performs the stage's work against the per-run context. The
	// context.Context carries cancellation for any outbound calls.
	Run(ctx context.Context, pc *Context) error

	// AlwaysRuns reports whether the stage executes even after an
	// upstream stage halted the chain.
	AlwaysRuns() bool
}

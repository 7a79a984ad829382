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

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/tradeflow/services/relay/observability"
)

// Pipeline runs an ordered list of stages over a per-notification
// context. A Pipeline is immutable after construction and safe for
// concurrent use; all mutable state lives on the Context.
type Pipeline struct {
	stages []Stage
}

// Builder assembles a pipeline stage by stage.
type Builder struct {
	stages []Stage
}

// NewBuilder creates an empty pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a stage to the chain.
func (b *Builder) Add(stage Stage) *Builder {
	b.stages = append(b.stages, stage)
	return b
}

// Build finalizes the pipeline. At least one stage is required.
func (b *Builder) Build() (*Pipeline, error) {
	if len(b.stages) == 0 {
		return nil, fmt.Errorf("pipeline requires at least one stage")
	}
	stages := make([]Stage, len(b.stages))
	copy(stages, b.stages)
	return &Pipeline{stages: stages}, nil
}

// Process runs every stage against a fresh context for the payload and
// returns the finished context. It never panics and never returns nil:
// failures, including panics inside stages, are converted into error
// states on the returned context.
func (p *Pipeline) Process(ctx context.Context, raw map[string]any) *Context {
	pc := NewContext(raw)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			pc.SetError(fmt.Sprintf("pipeline panic: %v", r), StatusPipelineError)
			slog.Error("Pipeline panicked", "context_id", pc.ID, "panic", r)
		}
		observability.ObservePipelineRun(string(pc.ProcessingStatus), time.Since(start))
		slog.Info("Pipeline run finished", "summary", pc.Summary())
	}()

	for _, stage := range p.stages {
		p.runStage(ctx, stage, pc)
	}
	return pc
}

// runStage executes one stage with skip logic, panic isolation, and
// completion bookkeeping.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, pc *Context) {
	if !pc.ShouldContinue() && !stage.AlwaysRuns() {
		slog.Debug("Skipping stage",
			"context_id", pc.ID, "stage", stage.Name(), "status", string(pc.ProcessingStatus))
		return
	}

	pc.StartStage(stage.Name())
	start := time.Now()

	err := p.safeRun(ctx, stage, pc)
	observability.ObserveStage(stage.Name(), time.Since(start), err != nil)

	if err != nil {
		pc.SetError(fmt.Sprintf("%s: %v", stage.Name(), err), StatusError)
		slog.Error("Stage failed", "context_id", pc.ID, "stage", stage.Name(), "error", err)
	}
	pc.MarkStageComplete(stage.Name())
}

// safeRun converts a stage panic into an error so one bad stage cannot
// kill the processing goroutine.
func (p *Pipeline) safeRun(ctx context.Context, stage Stage, pc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return stage.Run(ctx, pc)
}

// NewMinimal assembles a parse-and-record pipeline with no external
// collaborators at all. Used by tests and smoke deployments.
func NewMinimal() (*Pipeline, error) {
	return NewBuilder().
		Add(NewParseStage(nil, 0)).
		Add(NewRecordStage(nil, nil, 0)).
		Build()
}

// NewWithoutClassifier assembles the full chain minus classification,
// for deployments with no LLM key.
func NewWithoutClassifier(senders, domains []string) (*Pipeline, error) {
	return NewBuilder().
		Add(NewParseStage(nil, 0)).
		Add(NewWhitelistStage(nil, senders, domains)).
		Add(NewRecordStage(nil, nil, 0)).
		Build()
}

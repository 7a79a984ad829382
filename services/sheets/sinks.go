// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sheets

import (
	"context"

	"github.com/AleutianAI/tradeflow/services/relay/pipeline"
)

// AlertLog appends one row per processed notification.
type AlertLog struct {
	*log
}

var _ pipeline.AlertSink = (*AlertLog)(nil)

// NewAlertLog creates the alert sink and ensures the worksheet header.
func NewAlertLog(ctx context.Context, credentialsFile, spreadsheetID, worksheet string) (*AlertLog, error) {
	l, err := newLog(ctx, credentialsFile, spreadsheetID, worksheet, alertHeader)
	if err != nil {
		return nil, err
	}
	return &AlertLog{log: l}, nil
}

// AppendAlert implements pipeline.AlertSink.
func (a *AlertLog) AppendAlert(ctx context.Context, rec pipeline.AlertRecord) error {
	return a.append(ctx, alertRow(rec))
}

// ClassificationLog appends one row per classification attempt.
type ClassificationLog struct {
	*log
}

var _ pipeline.ClassificationSink = (*ClassificationLog)(nil)

// NewClassificationLog creates the classification sink and ensures the
// worksheet header.
func NewClassificationLog(ctx context.Context, credentialsFile, spreadsheetID, worksheet string) (*ClassificationLog, error) {
	l, err := newLog(ctx, credentialsFile, spreadsheetID, worksheet, classificationHeader)
	if err != nil {
		return nil, err
	}
	return &ClassificationLog{log: l}, nil
}

// AppendClassification implements pipeline.ClassificationSink.
func (c *ClassificationLog) AppendClassification(ctx context.Context, rec pipeline.ClassificationRecord) error {
	return c.append(ctx, classificationRow(rec))
}

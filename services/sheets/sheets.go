// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sheets provides the append-only Google Sheets log sinks. Every
// processed notification gets one row in the alert worksheet; every
// classification attempt gets one row in the classification worksheet.
// Rows are only ever appended, never updated.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// appendRange targets a worksheet for append; the API resolves the actual
// row from existing content.
func appendRange(worksheet string) string {
	return fmt.Sprintf("'%s'!A1", worksheet)
}

// log is the shared append machinery under both sinks.
type log struct {
	svc           *sheets.SpreadsheetsService
	spreadsheetID string
	worksheet     string
}

// newLog builds a sheets client from service account credentials and
// makes sure the worksheet carries its header row.
func newLog(ctx context.Context, credentialsFile, spreadsheetID, worksheet string, header []any) (*log, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	l := &log{
		svc:           srv.Spreadsheets,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
	}
	if err := l.ensureHeader(ctx, header); err != nil {
		return nil, err
	}

	slog.Info("Sheets log sink initialized", "spreadsheet", spreadsheetID, "worksheet", worksheet)
	return l, nil
}

// ensureHeader writes the header row if the worksheet is empty. An
// existing header is left alone even when it differs, so operators can
// rename columns without fighting the relay.
func (l *log) ensureHeader(ctx context.Context, header []any) error {
	resp, err := l.svc.Values.Get(l.spreadsheetID, appendRange(l.worksheet)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", l.worksheet, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	_, err = l.svc.Values.Update(l.spreadsheetID, appendRange(l.worksheet), &sheets.ValueRange{
		Values: [][]any{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", l.worksheet, err)
	}
	return nil
}

// append adds one row at the bottom of the worksheet.
func (l *log) append(ctx context.Context, row []any) error {
	_, err := l.svc.Values.Append(l.spreadsheetID, appendRange(l.worksheet), &sheets.ValueRange{
		Values: [][]any{row},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", l.worksheet, err)
	}
	return nil
}

// IsHealthy reports whether the API client exists.
func (l *log) IsHealthy() bool {
	return l.svc != nil
}

// Package ingest maps spreadsheet columns to fill fields and normalizes raw
// rows into typed fills.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trade-report/internal/logger"
	"trade-report/internal/types"
)

// Options controls normalization for one import.
type Options struct {
	// Source names the upload (usually the file name); it scopes fill IDs.
	Source string
	// Location is used for dates without an explicit offset. Defaults to UTC.
	Location *time.Location
	// DeriveAmount fills Amount with Price*Qty when no amount column exists.
	DeriveAmount bool
}

// SchemaError reports mandatory fields no header could be mapped to.
type SchemaError struct {
	Missing []Field
	Header  []string
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("could not identify mandatory columns [%s] in header [%s]",
		strings.Join(names, ", "), strings.Join(e.Header, " | "))
}

// Stats counts what happened to the data rows of one import.
type Stats struct {
	Rows        int `json:"rows"`
	Imported    int `json:"imported"`
	BlankDate   int `json:"blank_date"`
	InvalidDate int `json:"invalid_date"`
}

// Import maps the header and normalizes every data row. Rows without a date
// cell or with an unparsable date are dropped and counted; numeric cells
// never fail the import.
func Import(ctx context.Context, header []string, rows [][]string, opts Options) ([]types.Fill, Stats, error) {
	op := logger.StartOperation(ctx, "ingest.import", "source", opts.Source, "rows", len(rows))

	mapping := MapColumns(header)
	if missing := mapping.Missing(Required...); len(missing) > 0 {
		err := &SchemaError{Missing: missing, Header: append([]string(nil), header...)}
		op.EndWithError(err)
		return nil, Stats{Rows: len(rows)}, err
	}

	n := NewNormalizer(mapping, opts)
	stats := Stats{Rows: len(rows)}
	fills := make([]types.Fill, 0, len(rows))

	for i, row := range rows {
		if mapping.cell(row, FieldDate) == "" {
			stats.BlankDate++
			continue
		}
		f := n.Normalize(row, i)
		if f.Date.IsZero() {
			stats.InvalidDate++
			logger.Debug(op.GetContext(), "Dropping row with unparsable date", "row", i, "cells", row)
			continue
		}
		fills = append(fills, f)
	}
	stats.Imported = len(fills)

	op.End("imported", stats.Imported, "blank_date", stats.BlankDate, "invalid_date", stats.InvalidDate)
	return fills, stats, nil
}

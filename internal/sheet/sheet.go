// Package sheet turns uploaded statement files into a plain table of strings.
// It knows nothing about trading; callers receive the header row and the
// data rows exactly as the file presented them.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Table is a parsed spreadsheet: one header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ErrEmpty is returned for files without a header row.
var ErrEmpty = errors.New("sheet has no header row")

// ErrUnsupported is returned for extensions no reader handles.
var ErrUnsupported = errors.New("unsupported file type")

// Read parses data according to the extension of name. Blank rows are dropped.
func Read(name string, data []byte) (*Table, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		rows, err = ReadCSV(data)
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSX(data)
	case ".xls", ".html", ".htm":
		// Many exchanges export ".xls" that is really an HTML table.
		if looksLikeHTML(data) {
			rows, err = ReadHTML(data)
		} else {
			rows, err = ReadXLSX(data)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("sheet: failed to read %s: %w", name, err)
	}
	return FromRows(rows)
}

// FromRows builds a Table from raw rows, skipping rows with no content.
func FromRows(rows [][]string) (*Table, error) {
	var kept [][]string
	for _, r := range rows {
		if !blank(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmpty
	}
	return &Table{Header: kept[0], Rows: kept[1:]}, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.ToLower(head)
	return bytes.Contains(head, []byte("<table")) || bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype"))
}

// Package branches reads the garage branch roster from an XLSX spreadsheet.
package branches

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/garage-service/internal/domain"
)

// ErrNoSheet is returned when the workbook has no usable sheet.
var ErrNoSheet = errors.New("branches: workbook has no sheets")

// header aliases, compared lower-cased and trimmed
var columns = map[string]string{
	"name":        "name",
	"branch":      "name",
	"branch name": "name",
	"address":     "address",
	"city":        "city",
	"location":    "city",
	"phone":       "phone",
	"contact":     "phone",
	"manager":     "manager",
}

// Reader loads branches from a workbook on disk.
type Reader struct {
	path  string
	sheet string
}

// NewReader reads path; an empty sheet selects the first sheet.
func NewReader(path, sheet string) *Reader {
	return &Reader{path: path, sheet: sheet}
}

// Load opens the workbook and parses it. The file is re-read on every call.
func (r *Reader) Load() ([]domain.Branch, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("branches: open %s: %w", r.path, err)
	}
	defer f.Close()
	return parse(f, r.sheet)
}

// Parse reads branches from an XLSX stream.
func Parse(src io.Reader, sheet string) ([]domain.Branch, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("branches: open workbook: %w", err)
	}
	defer f.Close()
	return parse(f, sheet)
}

// parse treats the first row as headers. Each following non-blank row becomes a branch
// with id "branch-{n}", n being its 1-based data row number.
func parse(f *excelize.File, sheet string) ([]domain.Branch, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoSheet
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("branches: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []domain.Branch{}, nil
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		if field, ok := columns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := index[field]; !seen {
				index[field] = i
			}
		}
	}
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("branches: sheet %q has no name column", sheet)
	}

	cell := func(row []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]domain.Branch, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, domain.Branch{
			ID:      fmt.Sprintf("branch-%d", n+1),
			Name:    cell(row, "name"),
			Address: cell(row, "address"),
			City:    cell(row, "city"),
			Phone:   cell(row, "phone"),
			Manager: cell(row, "manager"),
		})
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"grnflow/internal/util"
)

// CleanDataset compacts a full dataset read into the rewritten value grid:
// rows duplicated by (PO, SKU) content key are removed keeping the first
// occurrence, fully blank rows and columns are dropped, remaining cells are
// coerced to natural scalars, and rows are sorted ascending by the PO column
// using string ordering (PO values may be alphanumeric). The returned count
// covers rows removed by deduplication plus blank-row removal.
//
// Idempotent: applying it to its own output removes nothing further. Rows
// with a blank composite key are never content-deduplicated.
func CleanDataset(values [][]string, poProbe, skuProbe string) ([][]any, int) {
	if len(values) == 0 {
		return nil, 0
	}

	width := 0
	for _, row := range values {
		if len(row) > width {
			width = len(row)
		}
	}

	headers := make([]string, width)
	for i := 0; i < width; i++ {
		h := ""
		if i < len(values[0]) {
			h = strings.TrimSpace(values[0][i])
		}
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}

	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rows = append(rows, util.PadRow(row, width))
	}
	before := len(rows)

	poIdx := FindHeaderIndex(headers, poProbe)
	skuIdx := FindHeaderIndex(headers, skuProbe)

	// Step 1: dedupe by content key, keeping first occurrence in row order.
	if poIdx >= 0 && skuIdx >= 0 {
		seen := map[string]struct{}{}
		deduped := rows[:0]
		for _, row := range rows {
			key, ok := ContentKey(row, poIdx, skuIdx)
			if ok {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			deduped = append(deduped, row)
		}
		rows = deduped
	}

	// Step 2: drop fully blank rows, then fully blank columns.
	nonBlank := rows[:0]
	for _, row := range rows {
		if !util.IsBlankRow(row) {
			nonBlank = append(nonBlank, row)
		}
	}
	rows = nonBlank
	removed := before - len(rows)

	headers, rows = dropBlankColumns(headers, rows)
	poIdx = FindHeaderIndex(headers, poProbe)

	// Step 4: stable lexicographic sort by PO when the column survived.
	if poIdx >= 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return strings.TrimSpace(rows[i][poIdx]) < strings.TrimSpace(rows[j][poIdx])
		})
	}

	// Step 3+5: coerce cells and assemble the replacement grid.
	out := make([][]any, 0, len(rows)+1)
	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	out = append(out, headerRow)
	for _, row := range rows {
		coerced := make([]any, len(row))
		for i, cell := range row {
			coerced[i] = util.CoerceCell(cell)
		}
		out = append(out, coerced)
	}

	return out, removed
}

func dropBlankColumns(headers []string, rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return headers, rows
	}
	keep := make([]int, 0, len(headers))
	for col := range headers {
		blank := true
		for _, row := range rows {
			if strings.TrimSpace(row[col]) != "" {
				blank = false
				break
			}
		}
		if !blank {
			keep = append(keep, col)
		}
	}
	if len(keep) == len(headers) {
		return headers, rows
	}

	newHeaders := make([]string, len(keep))
	for i, col := range keep {
		newHeaders[i] = headers[col]
	}
	newRows := make([][]string, len(rows))
	for r, row := range rows {
		newRow := make([]string, len(keep))
		for i, col := range keep {
			newRow[i] = row[col]
		}
		newRows[r] = newRow
	}
	return newHeaders, newRows
}

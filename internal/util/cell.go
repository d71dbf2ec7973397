package util

import (
	"strconv"
	"strings"
)

// CleanCell trims a raw cell value and strips stray apostrophes that
// spreadsheet exports prepend to force text formatting.
func CleanCell(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "'", "")
}

// CoerceCell converts a string cell to its natural scalar: empty stays an
// empty string, numeric tokens become float64 (when they carry a decimal
// point or exponent) or int64, anything else falls back to the trimmed
// string.
func CoerceCell(value string) any {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// PadRow extends row with empty cells up to width. Remote range reads return
// ragged rows; downstream indexing assumes rectangular data.
func PadRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

package pipeline

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"grnflow/internal/util"
)

// Table is the decoded content of one spreadsheet blob.
type Table struct {
	Headers []string
	Rows    [][]string
}

type decodeFunc func(blob []byte, headerRow int) (*Table, bool)

// Ordered decode strategies. Each returns (nil, false) when the blob is not
// its format; it never errors for that. The driver takes the first success.
var decodeStrategies = []struct {
	name string
	fn   decodeFunc
}{
	{"xlsx", decodeExcelize},
	{"htmltable", decodeHTMLTable},
	{"rawxml", decodeRawXML},
}

var errNoDecoder = errors.New("no decode strategy accepted the file")

// DecodeSpreadsheet extracts a table from a semi-trusted spreadsheet blob.
// headerRow selects the header line inside the file; -1 means the file has no
// header and synthetic Column_N names are used.
func DecodeSpreadsheet(blob []byte, headerRow int) (*Table, error) {
	for _, strategy := range decodeStrategies {
		if table, ok := strategy.fn(blob, headerRow); ok {
			return table, nil
		}
	}
	return nil, errNoDecoder
}

func decodeExcelize(blob []byte, headerRow int) (*Table, bool) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if table := tableFromGrid(rows, headerRow); table != nil {
			return table, true
		}
	}
	return nil, false
}

// decodeHTMLTable handles .xls attachments that are really HTML tables, a
// common shape for system-generated exports. The first row supplies headers.
func decodeHTMLTable(blob []byte, headerRow int) (*Table, bool) {
	lower := bytes.ToLower(blob)
	if !bytes.Contains(lower, []byte("<table")) {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		return nil, false
	}

	var table *Table
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		grid := [][]string{}
		sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.CleanCell(cell.Text()))
			})
			if len(cells) > 0 {
				grid = append(grid, cells)
			}
		})
		table = tableFromGrid(grid, headerRow)
		return table == nil
	})

	return table, table != nil
}

var (
	reSharedString = regexp.MustCompile(`(?s)<t[^>]*>([^<]*)</t>`)
	reSheetCell    = regexp.MustCompile(`(?s)<c[^>]*?r="([A-Z]+[0-9]+)"[^>]*?(?:t="([^"]*)")?[^>]*>(?:.*?<v[^>]*>([^<]*)</v>)?(?:.*?<is><t[^>]*>([^<]*)</t></is>)?`)
	reCellRef      = regexp.MustCompile(`^([A-Z]+)([0-9]+)$`)
)

// decodeRawXML scans the xlsx zip container directly, for files whose
// workbook metadata is damaged enough that excelize rejects them but whose
// worksheet XML is still intact.
func decodeRawXML(blob []byte, headerRow int) (*Table, bool) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, false
	}

	shared := []string{}
	var sheetXML string
	for _, zf := range zr.File {
		switch {
		case zf.Name == "xl/sharedStrings.xml":
			if content, err := readZipFile(zf); err == nil {
				for _, m := range reSharedString.FindAllStringSubmatch(content, -1) {
					shared = append(shared, strings.TrimSpace(m[1]))
				}
			}
		case strings.HasPrefix(zf.Name, "xl/worksheets/") && strings.HasSuffix(zf.Name, ".xml") && sheetXML == "":
			if content, err := readZipFile(zf); err == nil {
				sheetXML = content
			}
		}
	}
	if sheetXML == "" {
		return nil, false
	}

	cells := map[[2]int]string{}
	maxRow, maxCol := 0, 0
	for _, m := range reSheetCell.FindAllStringSubmatch(sheetXML, -1) {
		row, col, ok := parseCellRef(m[1])
		if !ok {
			continue
		}

		value := ""
		switch {
		case m[4] != "":
			value = strings.TrimSpace(m[4])
		case m[2] == "s" && m[3] != "":
			value = sharedString(shared, m[3])
		case m[3] != "":
			value = strings.TrimSpace(m[3])
		}

		cells[[2]int{row, col}] = util.CleanCell(value)
		if row > maxRow {
			maxRow = row
		}
		if col > maxCol {
			maxCol = col
		}
	}
	if len(cells) == 0 {
		return nil, false
	}

	grid := [][]string{}
	for row := 1; row <= maxRow; row++ {
		line := make([]string, maxCol)
		for col := 1; col <= maxCol; col++ {
			line[col-1] = cells[[2]int{row, col}]
		}
		if !util.IsBlankRow(line) {
			grid = append(grid, line)
		}
	}

	table := tableFromGrid(grid, headerRow)
	return table, table != nil
}

// tableFromGrid applies the header-row convention to a rectangularized grid
// and drops fully blank data rows. Returns nil when no data rows remain.
func tableFromGrid(grid [][]string, headerRow int) *Table {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}

	rect := make([][]string, 0, len(grid))
	for _, row := range grid {
		padded := util.PadRow(row, width)
		for i, cell := range padded {
			padded[i] = util.CleanCell(cell)
		}
		rect = append(rect, padded)
	}

	var headers []string
	var data [][]string
	if headerRow < 0 {
		headers = syntheticHeaders(width)
		data = rect
	} else {
		if headerRow >= len(rect) {
			return nil
		}
		headers = make([]string, width)
		for i, h := range rect[headerRow] {
			if strings.TrimSpace(h) == "" {
				headers[i] = fmt.Sprintf("Column_%d", i+1)
			} else {
				headers[i] = h
			}
		}
		data = rect[headerRow+1:]
	}

	rows := make([][]string, 0, len(data))
	for _, row := range data {
		if !util.IsBlankRow(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	return &Table{Headers: headers, Rows: rows}
}

func syntheticHeaders(width int) []string {
	out := make([]string, width)
	for i := range out {
		out[i] = fmt.Sprintf("Column_%d", i+1)
	}
	return out
}

func sharedString(shared []string, token string) string {
	idx := 0
	for _, r := range token {
		if r < '0' || r > '9' {
			return strings.TrimSpace(token)
		}
		idx = idx*10 + int(r-'0')
	}
	if idx < len(shared) {
		return shared[idx]
	}
	return strings.TrimSpace(token)
}

func parseCellRef(ref string) (row, col int, ok bool) {
	m := reCellRef.FindStringSubmatch(ref)
	if m == nil {
		return 0, 0, false
	}
	for _, r := range m[1] {
		col = col*26 + int(r-'A') + 1
	}
	for _, r := range m[2] {
		row = row*10 + int(r-'0')
	}
	return row, col, row > 0 && col > 0
}

func readZipFile(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

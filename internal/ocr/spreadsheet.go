package ocr

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet renders every sheet as tab-separated rows. Cells carry no
// geometry, so the result is degenerate: RawText only.
func (e *Extractor) extractSpreadsheet(path, ext string) (ExtractionResult, error) {
	var (
		sheets [][][]string
		err    error
	)
	if ext == "csv" {
		var rows [][]string
		rows, err = readCSV(path)
		sheets = [][][]string{rows}
	} else {
		sheets, err = readWorkbook(path)
	}
	if err != nil {
		return ExtractionResult{}, err
	}

	blocks := make([]string, 0, len(sheets))
	for _, rows := range sheets {
		if text := renderRows(rows); text != "" {
			blocks = append(blocks, text)
		}
	}
	raw := strings.Join(blocks, "\n\n")
	return ExtractionResult{
		RawText:    raw,
		Pages:      len(sheets),
		Method:     "spreadsheet",
		Confidence: heuristicConfidence(raw),
	}, nil
}

func readWorkbook(path string) ([][][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sheets [][][]string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, rows)
	}
	return sheets, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// renderRows joins non-empty cells with tabs and drops blank rows.
func renderRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, "\t"))
		}
	}
	return strings.Join(lines, "\n")
}

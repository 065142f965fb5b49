package curated

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mysticarcana/dataoracle/extract"
)

// LoadCorrespondences reads the per-card correspondence workbook. The first
// sheet is expected to carry a header row of card, element, astrology,
// keywords; list cells are comma-separated. A missing file yields an empty
// table, not an error.
func LoadCorrespondences(path string) (map[string]extract.Correspondence, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening correspondence workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("correspondence workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	cols := columnIndex(rows[0])
	table := make(map[string]extract.Correspondence)
	for _, row := range rows[1:] {
		card := strings.TrimSpace(cell(row, cols["card"]))
		if card == "" {
			continue
		}
		table[card] = extract.Correspondence{
			Card:      card,
			Element:   strings.ToLower(strings.TrimSpace(cell(row, cols["element"]))),
			Astrology: splitList(cell(row, cols["astrology"])),
			Keywords:  splitList(cell(row, cols["keywords"])),
		}
	}
	return table, nil
}

func columnIndex(header []string) map[string]int {
	cols := map[string]int{"card": -1, "element": -1, "astrology": -1, "keywords": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	return cols
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

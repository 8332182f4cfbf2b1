package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const maxSheetRows = 20000

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		writeRows(&b, rows)
	}
	return b.String(), nil
}

func extractXLS(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt xls: %v", r)
		}
	}()
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeRows(&b, wb.ReadAllCells(maxSheetRows))
	return b.String(), nil
}

func extractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		rows = append(rows, rec)
	}
	var b strings.Builder
	writeRows(&b, rows)
	return b.String(), nil
}

// writeRows renders spreadsheet rows as lines. A row holding exactly a label
// and a value becomes "Label: value" so field extraction can see it.
func writeRows(b *strings.Builder, rows [][]string) {
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		switch len(cells) {
		case 0:
			b.WriteString("\n")
		case 2:
			label := strings.TrimRight(cells[0], ":- ")
			b.WriteString(label + ": " + cells[1] + "\n")
		default:
			b.WriteString(strings.Join(cells, " | ") + "\n")
		}
	}
}

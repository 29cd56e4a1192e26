package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

// Format is an output format for reports.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want table, csv, json or xlsx)", s)
}

// Write renders the summary to w in format f.
func Write(w io.Writer, s Summary, f Format) error {
	switch f {
	case FormatTable:
		return WriteText(w, s.Tables())
	case FormatCSV:
		return WriteCSV(w, s.Tables())
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case FormatXLSX:
		return WriteXLSX(w, s.Tables())
	}
	return fmt.Errorf("unknown report format %q", f)
}

// WriteText prints each table as an aligned pipe grid. Widths are display
// widths, so accented or wide runes keep columns straight.
func WriteText(w io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "## %s\n", t.Title); err != nil {
			return err
		}
		for _, line := range alignRows(t) {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func alignRows(t Table) []string {
	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := runewidth.StringWidth(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(t.Header)
	for _, r := range t.Rows {
		measure(r)
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	render := func(row []string) string {
		var sb strings.Builder
		sb.WriteString("|")
		for j, width := range widths {
			content := ""
			if j < len(row) {
				content = row[j]
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(content, width))
			sb.WriteString(" |")
		}
		return sb.String()
	}

	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	lines := []string{render(t.Header), render(sep)}
	for _, r := range t.Rows {
		lines = append(lines, render(r))
	}
	return lines
}

// WriteCSV writes tables one after another, each preceded by its title row
// and separated by a blank line.
func WriteCSV(w io.Writer, tables []Table) error {
	cw := csv.NewWriter(w)
	for i, t := range tables {
		if i > 0 {
			if err := cw.Write([]string{""}); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{"# " + t.Title}); err != nil {
			return err
		}
		if err := cw.Write(t.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes one worksheet per table.
func WriteXLSX(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, t := range tables {
		sheet := sheetName(t.Title)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		header := make([]any, len(t.Header))
		for j, h := range t.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header %s: %w", sheet, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style header %s: %w", sheet, err)
		}

		for r, row := range t.Rows {
			cells := make([]any, len(row))
			for j, v := range row {
				cells[j] = v
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return fmt.Errorf("write row %s: %w", sheet, err)
			}
		}

		lastCol, _ := excelize.ColumnNumberToName(len(t.Header))
		if err := f.SetColWidth(sheet, "A", lastCol, 24); err != nil {
			return fmt.Errorf("set width %s: %w", sheet, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// sheetName keeps titles within Excel's 31-character sheet-name limit.
func sheetName(title string) string {
	r := strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ")
	name := r.Replace(title)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

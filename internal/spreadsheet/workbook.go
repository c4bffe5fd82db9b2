// Package spreadsheet lays out report rows as styled XLSX workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyReport is returned when there are no rows to lay out.
var ErrEmptyReport = errors.New("spreadsheet: report has no rows")

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the single worksheet of every report.
const SheetName = "Sheet 1"

// Fixed layout rows. Data starts right under the column titles.
const (
	titleRow     = 1
	filterRow    = 2
	headerRow    = 3
	FirstDataRow = 4
)

const defaultCurrency = "MXN"

// Meta carries workbook-wide values that do not come from the ledger.
type Meta struct {
	SoftwareName string
	Version      string
	Currency     string
	GeneratedAt  time.Time
}

func (m Meta) currency() string {
	if m.Currency == "" {
		return defaultCurrency
	}
	return m.Currency
}

func (m Meta) versionText() string {
	return m.SoftwareName + " v." + m.Version
}

type column struct {
	title string
	width float64
	kind  cellKind
	sum   bool
}

// footerFunc writes extra footer cells once the sums are in place.
type footerFunc func(f *excelize.File, st *styles, footer, first, last int) error

type layout struct {
	title   string
	filters []string
	columns []column
	rows    [][]any
	footer  footerFunc
}

// SumFormula returns the footer formula for n data rows starting at first.
func SumFormula(col string, first, n int) string {
	return fmt.Sprintf("SUM(%s%d:%s%d)", col, first, col, first+n-1)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func render(w io.Writer, l layout, meta Meta) error {
	if len(l.rows) == 0 {
		return ErrEmptyReport
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("spreadsheet: rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	lastCol := len(l.columns)
	if err := writeHeading(f, st, l, lastCol); err != nil {
		return err
	}
	if err := writeRows(f, st, l, lastCol); err != nil {
		return err
	}

	footer := FirstDataRow + len(l.rows)
	if err := writeFooter(f, st, l, footer); err != nil {
		return err
	}
	if l.footer != nil {
		if err := l.footer(f, st, footer, FirstDataRow, footer-1); err != nil {
			return err
		}
	}

	versionCell := cellName(1, footer+2)
	if err := f.SetCellValue(SheetName, versionCell, meta.versionText()); err != nil {
		return fmt.Errorf("spreadsheet: version: %w", err)
	}
	if err := f.SetCellStyle(SheetName, versionCell, versionCell, st.version); err != nil {
		return fmt.Errorf("spreadsheet: version style: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write: %w", err)
	}
	return nil
}

func writeHeading(f *excelize.File, st *styles, l layout, lastCol int) error {
	for _, r := range []struct {
		row   int
		value string
		style int
	}{
		{titleRow, l.title, st.title},
		{filterRow, strings.Join(l.filters, "\n"), st.filter},
	} {
		first, last := cellName(1, r.row), cellName(lastCol, r.row)
		if err := f.MergeCell(SheetName, first, last); err != nil {
			return fmt.Errorf("spreadsheet: merge row %d: %w", r.row, err)
		}
		if err := f.SetCellValue(SheetName, first, r.value); err != nil {
			return fmt.Errorf("spreadsheet: heading: %w", err)
		}
		if err := f.SetCellStyle(SheetName, first, last, r.style); err != nil {
			return fmt.Errorf("spreadsheet: heading style: %w", err)
		}
	}
	if err := f.SetRowHeight(SheetName, filterRow, float64(len(l.filters)*13+6)); err != nil {
		return fmt.Errorf("spreadsheet: filter height: %w", err)
	}

	titles := make([]any, len(l.columns))
	for i, c := range l.columns {
		titles[i] = c.title
		name := colName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return fmt.Errorf("spreadsheet: column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, cellName(1, headerRow), &titles); err != nil {
		return fmt.Errorf("spreadsheet: column titles: %w", err)
	}
	if err := f.SetCellStyle(SheetName, cellName(1, headerRow), cellName(lastCol, headerRow), st.head); err != nil {
		return fmt.Errorf("spreadsheet: header style: %w", err)
	}
	if err := f.SetRowHeight(SheetName, headerRow, 30); err != nil {
		return fmt.Errorf("spreadsheet: header height: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, st *styles, l layout, lastCol int) error {
	for i, values := range l.rows {
		row := FirstDataRow + i
		striped := row%2 == 1
		for j, v := range values {
			col := j + 1
			cell := cellName(col, row)
			if err := f.SetCellValue(SheetName, cell, cellValue(v)); err != nil {
				return fmt.Errorf("spreadsheet: cell %s: %w", cell, err)
			}
			id, err := st.bodyStyle(l.columns[j].kind, striped, edgeOf(col, lastCol))
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetName, cell, cell, id); err != nil {
				return fmt.Errorf("spreadsheet: cell style %s: %w", cell, err)
			}
		}
	}
	return nil
}

func writeFooter(f *excelize.File, st *styles, l layout, footer int) error {
	lastCol := len(l.columns)
	for i, c := range l.columns {
		col := i + 1
		cell := cellName(col, footer)
		kind := kindText
		if c.sum {
			kind = c.kind
			if err := f.SetCellFormula(SheetName, cell, SumFormula(colName(col), FirstDataRow, len(l.rows))); err != nil {
				return fmt.Errorf("spreadsheet: footer %s: %w", cell, err)
			}
		}
		id, err := st.footStyle(kind, edgeOf(col, lastCol))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, cell, cell, id); err != nil {
			return fmt.Errorf("spreadsheet: footer style %s: %w", cell, err)
		}
	}
	return nil
}

func edgeOf(col, lastCol int) edge {
	switch col {
	case 1:
		return edgeLeft
	case lastCol:
		return edgeRight
	default:
		return edgeNone
	}
}

func cellValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.InexactFloat64()
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val
	default:
		return v
	}
}

// filterLines accumulates the filter summary shown under the title.
type filterLines []string

func (f *filterLines) add(label, value string) {
	if value == "" {
		return
	}
	*f = append(*f, label+": "+value)
}

func (f *filterLines) dateRange(from, to *time.Time) {
	if from == nil && to == nil {
		return
	}
	f.add("Fecha", fmt.Sprintf("Desde %s hasta %s", formatDay(from), formatDay(to)))
}

func (f *filterLines) created(at time.Time) {
	f.add("Fecha de creación", at.Format("2/1/2006"))
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "--"
	}
	return t.Format("2006-01-02")
}

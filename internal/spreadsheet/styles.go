package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	currencyFormat = `"$"#,##0.00;[Red]\-"$"#,##0.00`
	percentFormat  = `0.00%;[Red]\-0.00%`
	dateFormat     = "dd/mm/yyyy"
	quantityFormat = "#,##0.00"

	brandColor  = "00676D"
	accentColor = "FFD240"
	edgeColor   = "666666"
)

type cellKind int

const (
	kindText cellKind = iota
	kindCentered
	kindDate
	kindCurrency
	kindPercent
	kindNumber
)

type edge int

const (
	edgeNone edge = iota
	edgeLeft
	edgeRight
)

type bodyKey struct {
	kind    cellKind
	striped bool
	edge    edge
}

type footKey struct {
	kind cellKind
	edge edge
}

// styles caches excelize style ids for one workbook.
type styles struct {
	f       *excelize.File
	title   int
	filter  int
	head    int
	version int
	body    map[bodyKey]int
	foot    map[footKey]int
}

func newStyles(f *excelize.File) (*styles, error) {
	s := &styles{f: f, body: make(map[bodyKey]int), foot: make(map[footKey]int)}
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: brandColor},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Fill:      solid("E6FFF2"),
	}); err != nil {
		return nil, fmt.Errorf("spreadsheet: title style: %w", err)
	}
	if s.filter, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: brandColor},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true, Indent: 1},
		Fill:      solid("E6FFF2"),
	}); err != nil {
		return nil, fmt.Errorf("spreadsheet: filter style: %w", err)
	}
	if s.head, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    []excelize.Border{{Type: "bottom", Color: accentColor, Style: 5}},
		Fill:      solid(brandColor),
	}); err != nil {
		return nil, fmt.Errorf("spreadsheet: header style: %w", err)
	}
	if s.version, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Color: "888888", Size: 8},
	}); err != nil {
		return nil, fmt.Errorf("spreadsheet: version style: %w", err)
	}
	return s, nil
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

func edgeBorders(e edge) []excelize.Border {
	switch e {
	case edgeLeft:
		return []excelize.Border{{Type: "left", Color: edgeColor, Style: 1}}
	case edgeRight:
		return []excelize.Border{{Type: "right", Color: edgeColor, Style: 1}}
	default:
		return nil
	}
}

func applyKind(st *excelize.Style, kind cellKind) {
	format := ""
	switch kind {
	case kindCentered:
		st.Alignment = &excelize.Alignment{Horizontal: "center"}
	case kindDate:
		st.Alignment = &excelize.Alignment{Horizontal: "center"}
		format = dateFormat
	case kindCurrency:
		st.Alignment = &excelize.Alignment{Horizontal: "right"}
		format = currencyFormat
	case kindPercent:
		st.Alignment = &excelize.Alignment{Horizontal: "right"}
		format = percentFormat
	case kindNumber:
		st.Alignment = &excelize.Alignment{Horizontal: "right"}
		format = quantityFormat
	}
	if format != "" {
		st.CustomNumFmt = &format
	}
}

func (s *styles) bodyStyle(kind cellKind, striped bool, e edge) (int, error) {
	key := bodyKey{kind: kind, striped: striped, edge: e}
	if id, ok := s.body[key]; ok {
		return id, nil
	}
	st := &excelize.Style{Border: edgeBorders(e)}
	applyKind(st, kind)
	if striped {
		st.Fill = solid("F3F3F3")
	}
	id, err := s.f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("spreadsheet: body style: %w", err)
	}
	s.body[key] = id
	return id, nil
}

func (s *styles) footStyle(kind cellKind, e edge) (int, error) {
	key := footKey{kind: kind, edge: e}
	if id, ok := s.foot[key]; ok {
		return id, nil
	}
	borders := []excelize.Border{
		{Type: "top", Color: edgeColor, Style: 1},
		{Type: "bottom", Color: edgeColor, Style: 1},
	}
	st := &excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: append(borders, edgeBorders(e)...),
		Fill:   solid("CCCCCC"),
	}
	applyKind(st, kind)
	if st.Alignment == nil {
		st.Alignment = &excelize.Alignment{}
	}
	st.Alignment.Vertical = "center"
	id, err := s.f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("spreadsheet: footer style: %w", err)
	}
	s.foot[key] = id
	return id, nil
}

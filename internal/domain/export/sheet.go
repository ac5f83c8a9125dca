package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Column bounds for content-fitted widths, in Excel character units.
const (
	minColWidth = 10.0
	maxColWidth = 50.0
)

// sheet accumulates rows for one worksheet and tracks the widest value
// seen per column so widths can be fitted once the data is in.
type sheet struct {
	file    *excelize.File
	name    string
	widths  []float64
	nextRow int
}

func addSheet(f *excelize.File, name string, headers []string) (*sheet, error) {
	if _, err := f.NewSheet(name); err != nil {
		return nil, err
	}
	s := &sheet{file: f, name: name, widths: make([]float64, len(headers)), nextRow: 1}
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := s.addRow(row...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sheet) addRow(values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, s.nextRow)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(s.name, cell, &values); err != nil {
		return err
	}
	for i, v := range values {
		if i >= len(s.widths) {
			break
		}
		if w := float64(len(fmt.Sprint(v))); w > s.widths[i] {
			s.widths[i] = w
		}
	}
	s.nextRow++
	return nil
}

// finish appends a blank spacer and a total-count row, then applies the
// header style and fitted column widths.
func (s *sheet) finish(total string) error {
	if err := s.addRow(); err != nil {
		return err
	}
	if err := s.addRow("", total); err != nil {
		return err
	}
	return s.done()
}

func (s *sheet) done() error {
	if err := s.styleHeader(); err != nil {
		return err
	}
	return s.fitColumns()
}

func (s *sheet) styleHeader() error {
	style, err := s.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"7D3740"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.widths), 1)
	if err != nil {
		return err
	}
	if err := s.file.SetCellStyle(s.name, "A1", last, style); err != nil {
		return err
	}
	return s.file.SetRowHeight(s.name, 1, 25)
}

func (s *sheet) fitColumns() error {
	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := w + 2
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := s.file.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// finishWorkbook drops the default sheet excelize creates and activates
// the first real one.
func finishWorkbook(f *excelize.File, first string) error {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	idx, err := f.GetSheetIndex(first)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

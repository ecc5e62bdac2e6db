package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Render writes the workbook as xlsx bytes.
func Render(wb *Workbook) ([]byte, error) {
	if wb == nil || len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("render: workbook has no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", sh.Name, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, fmt.Errorf("add sheet %q: %w", sh.Name, err)
		}

		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			values := row
			if err := f.SetSheetRow(sh.Name, cell, &values); err != nil {
				return nil, fmt.Errorf("write %q row %d: %w", sh.Name, r+1, err)
			}
		}

		for c, width := range sh.Widths {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sh.Name, col, col, width); err != nil {
				return nil, fmt.Errorf("set %q column %s width: %w", sh.Name, col, err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

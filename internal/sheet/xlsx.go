package sheet

import (
	"github.com/xuri/excelize/v2"

	"pendingorders/internal/faults"
)

// ReadXLSX reads the first worksheet of the workbook at path. The first row is
// the header. A workbook without a header row is an input fault.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.KindInput, "read spreadsheet", "cannot open workbook", err).WithPath(path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, faults.New(faults.KindInput, "read spreadsheet", "workbook has no worksheets").WithPath(path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, faults.Wrap(faults.KindInput, "read spreadsheet", "cannot read worksheet "+sheets[0], err).WithPath(path)
	}
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, faults.New(faults.KindInput, "read spreadsheet", "worksheet is empty").WithPath(path)
	}
	return NewTable(rows[0], rows[1:]), nil
}

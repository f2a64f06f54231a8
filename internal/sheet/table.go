package sheet

import "strings"

// Table is a header row plus data rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable builds a table, trimming header cells and padding or truncating
// rows to the header width. Rows that are blank in every cell are dropped.
func NewTable(header []string, rows [][]string) *Table {
	h := make([]string, len(header))
	for i, cell := range header {
		h[i] = strings.TrimSpace(cell)
	}
	t := &Table{Header: h}
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, fit(row, len(h)))
	}
	return t
}

func fit(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the header exactly equal to name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row r, column c, or "" when c is out of range.
func (t *Table) Cell(r, c int) string {
	if c < 0 || r < 0 || r >= len(t.Rows) || c >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][c]
}

// ColumnEmpty reports whether column c is blank in every row.
func (t *Table) ColumnEmpty(c int) bool {
	for r := range t.Rows {
		if strings.TrimSpace(t.Cell(r, c)) != "" {
			return false
		}
	}
	return true
}

// Rename sets the header of column c.
func (t *Table) Rename(c int, name string) {
	if c >= 0 && c < len(t.Header) {
		t.Header[c] = name
	}
}

// AddColumn appends a column filled with value and returns its index.
func (t *Table) AddColumn(name, value string) int {
	t.Header = append(t.Header, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], value)
	}
	return len(t.Header) - 1
}

// Fill sets every cell in column c to value.
func (t *Table) Fill(c int, value string) {
	for r := range t.Rows {
		if c < len(t.Rows[r]) {
			t.Rows[r][c] = value
		}
	}
}

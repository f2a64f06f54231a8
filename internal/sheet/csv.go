package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"pendingorders/internal/faults"
	"pendingorders/internal/fileutil"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns data as UTF-8: a leading byte order mark is stripped, and
// bytes that are not valid UTF-8 are decoded as Big5.
func DecodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode big5: %w", err)
	}
	return decoded, nil
}

// ParseCSV parses CSV text. The first record is the header.
func ParseCSV(data []byte) (*Table, error) {
	return ParseCSVSkip(data, 0)
}

// ParseCSVSkip parses CSV text whose header is followed by skip physical
// lines that are not data. The lines are dropped as raw text, so a blank line
// counts as one.
func ParseCSVSkip(data []byte, skip int) (*Table, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, err
	}
	hr := newCSVReader(text)
	header, err := hr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv has no header row")
	}
	if err != nil {
		return nil, err
	}

	rest := text[hr.InputOffset():]
	for i := 0; i < skip && len(rest) > 0; i++ {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			rest = nil
			break
		}
		rest = rest[nl+1:]
	}
	records, err := newCSVReader(rest).ReadAll()
	if err != nil {
		return nil, err
	}
	return NewTable(header, records), nil
}

func newCSVReader(text []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// ReadCSV reads and parses the CSV file at path.
func ReadCSV(path string) (*Table, error) {
	return ReadCSVSkip(path, 0)
}

// ReadCSVSkip reads the CSV file at path and parses it with ParseCSVSkip.
func ReadCSVSkip(path string, skip int) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.KindIO, "read csv", "cannot read file", err).WithPath(path)
	}
	t, err := ParseCSVSkip(data, skip)
	if err != nil {
		return nil, faults.Wrap(faults.KindInput, "read csv", "cannot parse csv", err).WithPath(path)
	}
	return t, nil
}

// WriteCSV writes t to w as UTF-8 CSV with a byte order mark.
func WriteCSV(w io.Writer, t *Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSVFile atomically replaces path with t encoded by WriteCSV.
func WriteCSVFile(path string, t *Table) error {
	err := fileutil.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, t)
	})
	if err != nil {
		return faults.Wrap(faults.KindIO, "write csv", "cannot write file", err).WithPath(path)
	}
	return nil
}

package sheet

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/traditionalchinese"

	"pendingorders/internal/faults"
)

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{" 訂單編號 ", "訂單狀態", "寄送方式"},
		{"ORD-1", "待出貨"},
		{nil, nil, nil},
		{"ORD-2", "已完成", "7-11"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	table, err := ReadXLSX(path)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if table.Header[0] != "訂單編號" {
		t.Fatalf("header not trimmed: %q", table.Header[0])
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (blank row dropped)", table.Len())
	}
	if len(table.Rows[0]) != 3 || table.Rows[0][2] != "" {
		t.Fatalf("short row not padded: %#v", table.Rows[0])
	}
	if table.Cell(1, 2) != "7-11" {
		t.Fatalf("cell = %q", table.Cell(1, 2))
	}
}

func TestReadXLSXEmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.xlsx")
	f := excelize.NewFile()
	if err := f.SaveAs(empty); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if _, err := ReadXLSX(empty); !faults.Is(err, faults.KindInput) {
		t.Fatalf("empty workbook: expected input fault, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	if err := os.WriteFile(corrupt, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadXLSX(corrupt); !faults.Is(err, faults.KindInput) {
		t.Fatalf("corrupt workbook: expected input fault, got %v", err)
	}
}

func TestCSVRoundTripWithBOM(t *testing.T) {
	table := NewTable([]string{"分店名稱", "訂單編號"}, [][]string{{"台北店", "ORD-1"}, {"", "ORD-2"}})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
		t.Fatal("missing byte order mark")
	}
	got, err := ParseCSV(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Header[0] != "分店名稱" || got.Cell(0, 0) != "台北店" || got.Cell(1, 1) != "ORD-2" {
		t.Fatalf("unexpected table %#v", got)
	}
}

func TestParseCSVBig5Fallback(t *testing.T) {
	text := "platform,shop_name\nShopee,台北店\n"
	encoded, err := traditionalchinese.Big5.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseCSV(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cell(0, 1) != "台北店" {
		t.Fatalf("big5 not decoded: %q", got.Cell(0, 1))
	}
}

func TestParseCSVSkipDropsPhysicalLines(t *testing.T) {
	cases := map[string]string{
		"title":  "\ufeffid,name\n標題,說明\n1,a\n2,b\n",
		"blank":  "id,name\n\n1,a\n2,b\n",
		"quoted": "\"id\",\"name\"\r\n,\r\n1,a\r\n2,b\r\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseCSVSkip([]byte(text), 1)
			if err != nil {
				t.Fatal(err)
			}
			if got.Len() != 2 || got.Cell(0, 0) != "1" || got.Cell(1, 1) != "b" {
				t.Fatalf("unexpected rows %#v", got.Rows)
			}
			if got.Index("name") != 1 {
				t.Fatalf("header = %#v", got.Header)
			}
		})
	}

	got, err := ParseCSVSkip([]byte("id,name\n"), 1)
	if err != nil || got.Len() != 0 {
		t.Fatalf("header only: %v %#v", err, got)
	}
	if _, err := ParseCSVSkip(nil, 1); err == nil {
		t.Fatal("empty input must fail")
	}
}

func TestWriteCSVFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "pending.csv")
	table := NewTable([]string{"a"}, [][]string{{"1"}})
	if err := WriteCSVFile(path, table); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 1 || got.Cell(0, 0) != "1" {
		t.Fatalf("unexpected table %#v", got)
	}
}

func TestTableHelpers(t *testing.T) {
	table := NewTable([]string{"x", "shop"}, [][]string{{"1", " "}, {"2", ""}})
	shop := table.Index("shop")
	if !table.ColumnEmpty(shop) {
		t.Fatal("expected empty column")
	}
	table.Fill(shop, "SH0004")
	if table.ColumnEmpty(shop) || table.Cell(1, shop) != "SH0004" {
		t.Fatal("fill failed")
	}
	idx := table.AddColumn("extra", "v")
	if idx != 2 || table.Cell(0, 2) != "v" {
		t.Fatal("add column failed")
	}
	table.Rename(0, "renamed")
	if table.Index("renamed") != 0 || table.Index("missing") != -1 {
		t.Fatal("rename failed")
	}
}

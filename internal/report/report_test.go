package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pendingorders/internal/extract"
	"pendingorders/internal/logging"
	"pendingorders/internal/sheet"
)

func writeOutput(t *testing.T, path string, orders ...extract.Order) {
	t.Helper()
	if err := sheet.WriteCSVFile(path, extract.Table(orders)); err != nil {
		t.Fatal(err)
	}
}

func readReport(t *testing.T, path string) []extract.Order {
	t.Helper()
	table, err := sheet.ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]extract.Order, 0, table.Len())
	for _, row := range table.Rows {
		out = append(out, extract.OrderFromRow(row))
	}
	return out
}

func newMerger(dir string) *Merger {
	return NewMerger(dir, func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) }, logging.NewNop())
}

func TestMergeDedupFirstFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "pending_orders_a.csv")
	second := filepath.Join(dir, "pending_orders_b.csv")
	writeOutput(t, first, extract.Order{Branch: "台北店", OrderID: "ORD-100", Carrier: "7-11"})
	writeOutput(t, second,
		extract.Order{Branch: "高雄店", OrderID: "ORD-100", Carrier: "黑貓"},
		extract.Order{Branch: "高雄店", OrderID: "ORD-200"},
	)

	result, err := newMerger(dir).Merge(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Rows != 2 || result.Duplicates != 1 || result.Inputs != 2 {
		t.Fatalf("unexpected result %#v", result)
	}
	if filepath.Base(result.Path) != "pending_orders_merged_20250102_030405.csv" {
		t.Fatalf("unexpected report name %s", result.Path)
	}
	count := 0
	for _, o := range readReport(t, result.Path) {
		if o.OrderID == "ORD-100" {
			count++
			if o.Branch != "台北店" || o.Carrier != "7-11" {
				t.Fatalf("ORD-100 should come from the first file: %#v", o)
			}
		}
	}
	if count != 1 {
		t.Fatalf("ORD-100 appears %d times", count)
	}
}

func TestSortOrders(t *testing.T) {
	orders := []extract.Order{
		{Branch: "B", OrderDate: "2024-01-02", OrderID: "1"},
		{Branch: "A", OrderDate: "2024-01-01", OrderID: "2"},
		{Branch: "A", OrderDate: "2024-01-03", OrderID: "3"},
	}
	SortOrders(orders)
	got := [][2]string{}
	for _, o := range orders {
		got = append(got, [2]string{o.Branch, o.OrderDate})
	}
	want := [][2]string{{"A", "2024-01-01"}, {"A", "2024-01-03"}, {"B", "2024-01-02"}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortOrdersEmptyLast(t *testing.T) {
	orders := []extract.Order{
		{Branch: "", OrderID: "blank"},
		{Branch: "Z", OrderID: "z"},
		{Branch: "A", OrderDate: "", Carrier: "x", OrderID: "a-nodate"},
		{Branch: "A", OrderDate: "2024-01-01", OrderID: "a-date"},
		{Branch: "A", OrderDate: "2024-01-01", Carrier: "", OrderID: "a-nocarrier"},
		{Branch: "A", OrderDate: "2024-01-01", Carrier: "7-11", OrderID: "a-carrier"},
	}
	SortOrders(orders)
	want := []string{"a-carrier", "a-date", "a-nocarrier", "a-nodate", "z", "blank"}
	for i, id := range want {
		if orders[i].OrderID != id {
			ids := make([]string, len(orders))
			for j, o := range orders {
				ids[j] = o.OrderID
			}
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestMergeSkipsMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "pending_orders_empty.csv")
	writeOutput(t, empty)
	missing := filepath.Join(dir, "pending_orders_gone.csv")

	result, err := newMerger(dir).Merge(context.Background(), []string{missing, empty})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Path != "" || result.Skipped != 1 || result.Inputs != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("no report expected, dir has %d entries", len(entries))
	}
}

func TestMergeNeverOverwritesReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "pending_orders_a.csv")
	writeOutput(t, input, extract.Order{Branch: "A", OrderID: "1"})
	m := newMerger(dir)

	first, err := m.Merge(context.Background(), []string{input})
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Merge(context.Background(), []string{input})
	if err != nil {
		t.Fatal(err)
	}
	if first.Path == second.Path {
		t.Fatalf("report overwritten at %s", first.Path)
	}
	if filepath.Base(second.Path) != "pending_orders_merged_20250102_030405_1.csv" {
		t.Fatalf("unexpected second name %s", second.Path)
	}
}

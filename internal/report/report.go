// Package report merges the per-file outputs of a run into the final report.
package report

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pendingorders/internal/extract"
	"pendingorders/internal/faults"
	"pendingorders/internal/fileutil"
	"pendingorders/internal/logging"
	"pendingorders/internal/sheet"
)

// Result summarizes one merge.
type Result struct {
	// Path is empty when nothing was written.
	Path       string
	Rows       int
	Duplicates int
	// Inputs counts per-file outputs that were read; Skipped those that were not.
	Inputs  int
	Skipped int
}

// Merger writes final reports into a directory.
type Merger struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewMerger returns a merger writing into dir. now stamps report names; nil
// means time.Now.
func NewMerger(dir string, now func() time.Time, logger *slog.Logger) *Merger {
	if now == nil {
		now = time.Now
	}
	return &Merger{
		dir:    dir,
		now:    now,
		logger: logging.NewComponentLogger(logger, "report"),
	}
}

// Name returns the report base name (without extension) for t.
func Name(t time.Time) string {
	return extract.OutputPrefix + "merged_" + fileutil.Stamp(t)
}

// Merge concatenates paths in order, keeps the first row per order id, sorts
// by branch, date and carrier with empty values last, and writes a new
// timestamped report. Missing or unreadable inputs are skipped with a warning.
// When no rows remain nothing is written and Result.Path is empty.
func (m *Merger) Merge(ctx context.Context, paths []string) (Result, error) {
	logger := logging.WithContext(ctx, m.logger)
	var (
		result Result
		orders []extract.Order
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rows, err := readOutput(path)
		if err != nil {
			result.Skipped++
			logging.WarnWithContext(logger, "per-file output unusable; skipping", "report_input_skipped",
				logging.String("path", filepath.Base(path)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "its orders are missing from this report"),
				logging.String(logging.FieldErrorHint, "inspect the per-file output in the processed directory"),
			)
			continue
		}
		result.Inputs++
		logger.Debug("read per-file output", logging.String("path", filepath.Base(path)), logging.Int("rows", len(rows)))
		orders = append(orders, rows...)
	}

	total := len(orders)
	orders, result.Duplicates = extract.DedupeByOrderID(orders)
	if result.Duplicates > 0 {
		logger.Info("merged report deduplicated", logging.Int("before", total), logging.Int("after", len(orders)))
	}
	if len(orders) == 0 {
		logging.WarnWithContext(logger, "no rows to merge; report not written", "report_empty",
			logging.Int("inputs", result.Inputs),
			logging.Int("skipped", result.Skipped),
			logging.String(logging.FieldImpact, "no final report for this run"),
			logging.String(logging.FieldErrorHint, "none if no pending orders were expected"),
		)
		return result, nil
	}
	SortOrders(orders)

	path, err := fileutil.UniquePath(m.dir, Name(m.now()), ".csv")
	if err != nil {
		return result, faults.Wrap(faults.KindIO, "merge", "choose report name", err).WithPath(m.dir)
	}
	if err := sheet.WriteCSVFile(path, extract.Table(orders)); err != nil {
		return result, err
	}
	result.Path = path
	result.Rows = len(orders)
	logger.Info("final report written",
		logging.String("report", filepath.Base(path)),
		logging.Int("rows", result.Rows),
		logging.Int("inputs", result.Inputs),
	)
	return result, nil
}

func readOutput(path string) ([]extract.Order, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("file no longer exists")
		}
		return nil, err
	}
	table, err := sheet.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(extract.OutputHeader))
	for i, name := range extract.OutputHeader {
		idx[i] = table.Index(name)
	}
	if idx[2] < 0 {
		return nil, errors.New("missing " + extract.ColOrderID + " column")
	}
	orders := make([]extract.Order, 0, table.Len())
	for r := range table.Rows {
		row := make([]string, len(idx))
		for i, c := range idx {
			row[i] = strings.TrimSpace(table.Cell(r, c))
		}
		orders = append(orders, extract.OrderFromRow(row))
	}
	return orders, nil
}

// SortOrders stable-sorts by branch, order date, then carrier, ascending, with
// empty values after all present ones.
func SortOrders(orders []extract.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		for _, pair := range [][2]string{
			{a.Branch, b.Branch},
			{a.OrderDate, b.OrderDate},
			{a.Carrier, b.Carrier},
		} {
			if c := compareEmptyLast(pair[0], pair[1]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareEmptyLast(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

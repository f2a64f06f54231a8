package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pendingorders/internal/archive"
	"pendingorders/internal/columns"
	"pendingorders/internal/faults"
	"pendingorders/internal/intake"
	"pendingorders/internal/logging"
	"pendingorders/internal/sheet"
	"pendingorders/internal/shops"
	"pendingorders/internal/status"
)

// ShopIDColumn is the canonical name of the shop identifier column.
const ShopIDColumn = "shop_id"

// Options configures a Pipeline.
type Options struct {
	TempDir   string
	OutputDir string
	Aliases   columns.Aliases
	Directory *shops.Directory
}

// Output describes a successful per-file extraction.
type Output struct {
	Path         string
	Rows         int
	Pending      int
	Duplicates   int
	MissingShops []string
}

// Pipeline extracts pending orders from one intake file at a time.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// NewPipeline returns a pipeline. A nil alias table uses the built-in one.
func NewPipeline(opts Options, logger *slog.Logger) *Pipeline {
	if opts.Aliases == nil {
		opts.Aliases = columns.Builtin()
	}
	return &Pipeline{opts: opts, logger: logging.NewComponentLogger(logger, "extract")}
}

// Run extracts rec into its per-file output.
func (p *Pipeline) Run(ctx context.Context, rec intake.Record) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	logger := logging.WithContext(ctx, p.logger)
	stem, _ := archive.SplitName(rec.Name)

	table, err := sheet.ReadXLSX(rec.Path)
	if err != nil {
		return Output{}, err
	}
	if table.Len() == 0 {
		return Output{}, faults.New(faults.KindInput, "extract", "spreadsheet has no data rows").WithPath(rec.Path)
	}

	shopCol, err := p.settleShopID(logger, table, rec)
	if err != nil {
		return Output{}, err
	}

	tempPath := filepath.Join(p.opts.TempDir, stem+".csv")
	if err := sheet.WriteCSVFile(tempPath, table); err != nil {
		return Output{}, err
	}
	logger.Debug("wrote unfiltered extraction", logging.String("path", tempPath), logging.Int("rows", table.Len()))

	statusCol, ok := p.opts.Aliases.Find(table.Header, columns.Status)
	if !ok {
		return Output{}, faults.New(faults.KindSchema, "extract",
			"missing order status column (accepted: "+strings.Join(p.opts.Aliases[columns.Status], ", ")+")").WithPath(rec.Path)
	}

	mapped := p.resolveOutputColumns(logger, table.Header)
	missing := make(map[string]struct{})
	var orders []Order
	for r := range table.Rows {
		if !status.IsPendingShipment(table.Cell(r, statusCol)) {
			continue
		}
		shopID := strings.TrimSpace(table.Cell(r, shopCol))
		name := p.opts.Directory.Name(shopID)
		if name == "" {
			missing[shopID] = struct{}{}
		}
		orders = append(orders, Order{
			Branch:         name,
			OrderDate:      mapped.cell(table, r, columns.OrderDate),
			OrderID:        mapped.cell(table, r, columns.OrderID),
			Carrier:        mapped.cell(table, r, columns.Carrier),
			TrackingNumber: mapped.cell(table, r, columns.TrackingNumber),
		})
	}
	pending := len(orders)

	out := Output{Pending: pending}
	if len(missing) > 0 {
		for id := range missing {
			out.MissingShops = append(out.MissingShops, id)
		}
		sort.Strings(out.MissingShops)
		logging.WarnWithContext(logger, "shop ids not found in shop directory", "shop_lookup_missing",
			logging.Strings("shop_ids", out.MissingShops),
			logging.String(logging.FieldImpact, "rows kept with an empty branch name"),
			logging.String(logging.FieldErrorHint, "add the shops to the shop directory or mark them active"),
		)
	}

	orders, out.Duplicates = DedupeByOrderID(orders)
	if out.Duplicates > 0 {
		logger.Info("dropped repeated order ids", logging.Int("before", pending), logging.Int("after", len(orders)))
	}
	if pending == 0 {
		logging.WarnWithContext(logger, "no pending-shipment orders in file", "extract_no_pending",
			logging.String(logging.FieldImpact, "a header-only per-file output is written"),
			logging.String(logging.FieldErrorHint, "none if the shop had nothing awaiting shipment"),
		)
	}

	out.Path = OutputPath(p.opts.OutputDir, stem, rec.Fingerprint)
	if err := sheet.WriteCSVFile(out.Path, Table(orders)); err != nil {
		return Output{}, err
	}
	out.Rows = len(orders)
	logger.Info("per-file output written",
		logging.String("output", filepath.Base(out.Path)),
		logging.Int("rows", out.Rows),
		logging.Int("pending", out.Pending),
	)
	return out, nil
}

// settleShopID makes sure table has a populated shop_id column and returns its
// index. A resolved column wins unless it is blank in every row; otherwise the
// file name token fills it.
func (p *Pipeline) settleShopID(logger *slog.Logger, table *sheet.Table, rec intake.Record) (int, error) {
	col, found := p.opts.Aliases.Find(table.Header, columns.ShopID)
	if found && !table.ColumnEmpty(col) {
		table.Rename(col, ShopIDColumn)
		for r := range table.Rows {
			table.Rows[r][col] = strings.TrimSpace(table.Rows[r][col])
		}
		logger.Debug("shop id taken from column", logging.Int("column", col))
		return col, nil
	}

	id, ok := ShopIDFromName(rec.Name)
	if !ok {
		msg := "no shop id column and no _SH####_ token in file name"
		if found {
			msg = "shop id column is empty and no _SH####_ token in file name"
		}
		return -1, faults.New(faults.KindSchema, "extract", msg).WithPath(rec.Path)
	}
	if found {
		table.Rename(col, ShopIDColumn)
		table.Fill(col, id)
	} else {
		col = table.AddColumn(ShopIDColumn, id)
	}
	logger.Info("shop id taken from file name", logging.String("shop_id", id))
	return col, nil
}

type columnMap map[string]int

func (m columnMap) cell(t *sheet.Table, r int, field string) string {
	c, ok := m[field]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.Cell(r, c))
}

var outputFields = []struct {
	field  string
	column string
}{
	{columns.OrderDate, ColOrderDate},
	{columns.OrderID, ColOrderID},
	{columns.Carrier, ColCarrier},
	{columns.TrackingNumber, ColTrackingNumber},
}

func (p *Pipeline) resolveOutputColumns(logger *slog.Logger, header []string) columnMap {
	m := make(columnMap, len(outputFields))
	for _, f := range outputFields {
		c, ok := p.opts.Aliases.Find(header, f.field)
		if !ok {
			logging.WarnWithContext(logger, fmt.Sprintf("no source column for %s", f.column), "extract_column_missing",
				logging.String("output_column", f.column),
				logging.String(logging.FieldImpact, "output column left empty"),
				logging.String(logging.FieldErrorHint, "add the header spelling to the column alias file"),
			)
			continue
		}
		m[f.field] = c
	}
	return m
}

// DedupeByOrderID keeps the first order per id and returns the kept orders and
// the number dropped. Orders with an empty id are all kept.
func DedupeByOrderID(orders []Order) ([]Order, int) {
	seen := make(map[string]struct{}, len(orders))
	kept := make([]Order, 0, len(orders))
	dropped := 0
	for _, o := range orders {
		id := strings.TrimSpace(o.OrderID)
		if id != "" {
			if _, dup := seen[id]; dup {
				dropped++
				continue
			}
			seen[id] = struct{}{}
		}
		kept = append(kept, o)
	}
	return kept, dropped
}

// Remove deletes a per-file output, ignoring a missing file.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

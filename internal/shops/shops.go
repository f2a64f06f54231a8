// Package shops loads the shop directory: the reference table mapping shop
// identifiers to display names and metadata.
package shops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"pendingorders/internal/faults"
	"pendingorders/internal/sheet"
)

// Shop is one directory entry.
type Shop struct {
	ID         string
	Name       string
	Account    string
	Department string
	Manager    string
	Location   string
}

// Directory maps shop identifiers to entries. It is read-only after Load.
type Directory struct {
	shops map[string]Shop
}

// NewDirectory builds a directory from entries; later duplicates replace earlier ones.
func NewDirectory(entries ...Shop) *Directory {
	d := &Directory{shops: make(map[string]Shop, len(entries))}
	for _, s := range entries {
		d.shops[s.ID] = s
	}
	return d
}

// Lookup returns the entry for id.
func (d *Directory) Lookup(id string) (Shop, bool) {
	if d == nil {
		return Shop{}, false
	}
	s, ok := d.shops[strings.TrimSpace(id)]
	return s, ok
}

// Name returns the display name for id, or "" when the id is unknown.
func (d *Directory) Name(id string) string {
	s, _ := d.Lookup(id)
	return s.Name
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.shops)
}

// IDs returns the known identifiers in sorted order.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, d.Len())
	for id := range d.shops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var requiredColumns = []string{"platform", "shop_id", "shop_name", "shop_status"}

// Load reads the shop directory CSV at path. The first line is the header and
// the second a decorative title line, which is skipped even when blank. Only rows whose
// platform matches and whose shop_status is true are kept. Every failure is a
// config fault, because a run cannot produce meaningful output without shops.
func Load(path, platform string) (*Directory, error) {
	const op = "load shop directory"
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, faults.Wrap(faults.KindConfig, op, "shop directory file not found", err).WithPath(path)
		}
		return nil, faults.Wrap(faults.KindConfig, op, "cannot access shop directory file", err).WithPath(path)
	}
	table, err := sheet.ReadCSVSkip(path, 1)
	if err != nil {
		return nil, faults.Wrap(faults.KindConfig, op, "cannot read shop directory", err).WithPath(path)
	}

	var missing []string
	for _, col := range requiredColumns {
		if table.Index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, faults.New(faults.KindConfig, op,
			"shop directory is missing required columns: "+strings.Join(missing, ", ")).WithPath(path)
	}

	col := func(name string) int { return table.Index(name) }
	platformCol, idCol, nameCol, statusCol := col("platform"), col("shop_id"), col("shop_name"), col("shop_status")
	accountCol, deptCol, managerCol, locationCol := col("shop_account"), col("department"), col("manager"), col("location")

	dir := &Directory{shops: make(map[string]Shop)}
	for r := range table.Rows {
		if !strings.EqualFold(strings.TrimSpace(table.Cell(r, platformCol)), platform) {
			continue
		}
		if !truthy(table.Cell(r, statusCol)) {
			continue
		}
		id := strings.TrimSpace(table.Cell(r, idCol))
		if id == "" {
			continue
		}
		dir.shops[id] = Shop{
			ID:         id,
			Name:       strings.TrimSpace(table.Cell(r, nameCol)),
			Account:    strings.TrimSpace(table.Cell(r, accountCol)),
			Department: strings.TrimSpace(table.Cell(r, deptCol)),
			Manager:    strings.TrimSpace(table.Cell(r, managerCol)),
			Location:   strings.TrimSpace(table.Cell(r, locationCol)),
		}
	}
	if dir.Len() == 0 {
		return nil, faults.New(faults.KindConfig, op,
			fmt.Sprintf("shop directory has no active %s shops (platform=%s, shop_status=TRUE)", platform, platform)).WithPath(path)
	}
	return dir, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y", "t":
		return true
	default:
		return false
	}
}

package columns

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var builtinYAML []byte

// Logical field names used as alias table keys.
const (
	ShopID         = "shop_id"
	Status         = "status"
	OrderDate      = "order_date"
	OrderID        = "order_id"
	Carrier        = "carrier"
	TrackingNumber = "tracking_number"
)

// Aliases maps a logical field to its accepted header spellings.
type Aliases map[string][]string

// Builtin returns a fresh copy of the embedded alias table.
func Builtin() Aliases {
	a, err := parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded aliases.yaml: %v", err))
	}
	return a
}

// Load returns the built-in table extended with the entries of the YAML file
// at path. Spellings from the file are appended after the built-in ones. An
// empty path returns the built-in table.
func Load(path string) (Aliases, error) {
	base := Builtin()
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column aliases: %w", err)
	}
	extra, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse column aliases %s: %w", path, err)
	}
	for field, names := range extra {
		base[field] = appendUnique(base[field], names...)
	}
	return base, nil
}

func parse(data []byte) (Aliases, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(Aliases, len(raw))
	for field, names := range raw {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		out[field] = appendUnique(nil, names...)
	}
	return out, nil
}

func appendUnique(dst []string, names ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(names))
	for _, n := range dst {
		seen[Normalize(n)] = struct{}{}
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := Normalize(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, n)
	}
	return dst
}

// Find resolves field against headers.
func (a Aliases) Find(headers []string, field string) (int, bool) {
	return Resolve(headers, a[field])
}

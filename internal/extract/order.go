package extract

import (
	"path/filepath"
	"regexp"

	"pendingorders/internal/fingerprint"
	"pendingorders/internal/sheet"
)

// Output column names, in order.
const (
	ColBranch         = "分店名稱"
	ColOrderDate      = "訂單日期"
	ColOrderID        = "訂單編號"
	ColCarrier        = "物流公司"
	ColTrackingNumber = "物流單號"
	ColRemark         = "備註"
)

// OutputHeader is the fixed per-file and report schema.
var OutputHeader = []string{ColBranch, ColOrderDate, ColOrderID, ColCarrier, ColTrackingNumber, ColRemark}

// Order is one shipment-pending order.
type Order struct {
	Branch         string
	OrderDate      string
	OrderID        string
	Carrier        string
	TrackingNumber string
	Remark         string
}

// Row returns o in OutputHeader order.
func (o Order) Row() []string {
	return []string{o.Branch, o.OrderDate, o.OrderID, o.Carrier, o.TrackingNumber, o.Remark}
}

// OrderFromRow is the inverse of Row. Short rows yield empty fields.
func OrderFromRow(row []string) Order {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return Order{
		Branch:         cell(0),
		OrderDate:      cell(1),
		OrderID:        cell(2),
		Carrier:        cell(3),
		TrackingNumber: cell(4),
		Remark:         cell(5),
	}
}

// Table renders orders under OutputHeader.
func Table(orders []Order) *sheet.Table {
	t := &sheet.Table{Header: append([]string(nil), OutputHeader...)}
	for _, o := range orders {
		t.Rows = append(t.Rows, o.Row())
	}
	return t
}

// OutputPrefix starts every per-file output and report name.
const OutputPrefix = "pending_orders_"

// OutputPath is the per-file output location for an input stem and
// fingerprint. The same content always maps to the same path.
func OutputPath(dir, stem string, fp fingerprint.Fingerprint) string {
	return filepath.Join(dir, OutputPrefix+stem+"__sha256_"+string(fp)+".csv")
}

var shopIDToken = regexp.MustCompile(`_(SH\d{4})_`)

// ShopIDFromName extracts the _SH####_ token from a file name.
func ShopIDFromName(name string) (string, bool) {
	m := shopIDToken.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

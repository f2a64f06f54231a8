// Package status classifies raw order status strings.
package status

import (
	"strings"

	"golang.org/x/text/cases"
)

// PendingShipment is the vocabulary of statuses meaning the order has not yet
// been handed to a carrier.
var PendingShipment = []string{
	"待出貨",
	"待處理",
	"pending",
	"待出貨中",
	"待發貨",
	"待寄出",
	"待出貨（待處理）",
}

var pendingSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(PendingShipment))
	for _, s := range PendingShipment {
		set[fold(s)] = struct{}{}
	}
	return set
}()

// fold trims and case-folds s. Width variants stay distinct.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// IsPendingShipment reports whether raw, ignoring case and surrounding space,
// is in the pending-shipment vocabulary.
func IsPendingShipment(raw string) bool {
	_, ok := pendingSet[fold(raw)]
	return ok
}

package transform

import (
	"fmt"
	"time"

	"billing-bridge/internal/source"
)

// FilterByWindow selects invoices dated strictly after now minus windowDays.
// An invoice dated exactly at the cutoff is excluded. Output order is
// unspecified; callers must not depend on it.
func FilterByWindow(invoices []source.Invoice, windowDays int, now time.Time) ([]source.Invoice, error) {
	cutoff := now.AddDate(0, 0, -windowDays)

	var kept []source.Invoice
	for _, inv := range invoices {
		d, err := source.ParseDate(inv.Date)
		if err != nil {
			return nil, fmt.Errorf("invoice %d: %w", inv.ID, err)
		}
		if d.After(cutoff) {
			kept = append(kept, inv)
		}
	}
	return kept, nil
}

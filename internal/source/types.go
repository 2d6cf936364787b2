// Package source pulls raw billing records from the metered-usage API or from
// flat CSV exports, in their native schemas. Rows are a closed set of tagged
// variants; the normalizer branches on the variant, never on key probing.
package source

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Invoice is one invoice summary from the account invoice list. Transient:
// created per run, discarded after normalization.
type Invoice struct {
	ID    int         `json:"id"`
	Label string      `json:"label"`
	Date  string      `json:"date"`
	Total json.Number `json:"total"`
}

// InvoiceItem is one line item from an invoice's items sub-resource. Numeric
// fields stay json.Number so the API's decimal text survives verbatim.
type InvoiceItem struct {
	Label     string      `json:"label"`
	Amount    json.Number `json:"amount"`
	Quantity  json.Number `json:"quantity"`
	Tax       json.Number `json:"tax"`
	Total     json.Number `json:"total"`
	UnitPrice string      `json:"unit_price"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Region    string      `json:"region"`
	Type      string      `json:"type"`
}

// UsageRow is one row of the flat usage export.
type UsageRow struct {
	SKU        string
	InstanceID string
	UsageDate  string
	Cost       string
	Discount   string
	Row        int // 1-based data row in the source file
}

// CommitmentRow is one row of the purchase-commitment export.
type CommitmentRow struct {
	CommitmentID   string
	CommitmentDate string
	Cost           string
	Row            int
}

// DiscountRow is one row of the discount export.
type DiscountRow struct {
	DiscountID   string
	DiscountType string
	UsageDate    string
	Discount     string
	Row          int
}

// Skip records one row that failed validation and was left out of the run.
type Skip struct {
	Row    int
	Reason string
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParseDate parses the timestamp formats the invoice API is known to emit.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", s)
}

// Package cbf implements the Common Billing Format: the canonical flat record
// schema used as the pipeline's sole internal and output representation.
package cbf

import "fmt"

// LineItemType tags the billing category of a record.
type LineItemType string

const (
	TypeUsage                LineItemType = "Usage"
	TypeCommittedUsePurchase LineItemType = "CommittedUsePurchase"
	TypeDiscount             LineItemType = "Discount"
)

// Canonical field keys.
const (
	FieldLineItemType   = "lineitem/type"
	FieldService        = "resource/service"
	FieldResourceID     = "resource/id"
	FieldRegion         = "resource/region"
	FieldInvoiceID      = "bill/invoice_id"
	FieldUsageAmount    = "usage/amount"
	FieldCost           = "cost/cost"
	FieldDiscountedCost = "cost/discounted_cost"
	FieldUsageStart     = "time/usage_start"
	FieldUsageEnd       = "time/usage_end"
)

// FieldOrder is the canonical column order for CSV output. Downstream
// consumers depend on it byte-for-byte.
var FieldOrder = []string{
	FieldLineItemType,
	FieldService,
	FieldResourceID,
	FieldRegion,
	FieldInvoiceID,
	FieldUsageAmount,
	FieldCost,
	FieldDiscountedCost,
	FieldUsageStart,
	FieldUsageEnd,
}

// Record is one normalized billing line item. Money and quantity fields are
// decimal strings, carried verbatim from the source so no float reformatting
// can drift the values. Optional fields are empty when the source kind does
// not provide them.
type Record struct {
	LineItemType   LineItemType `json:"lineitem/type"`
	Service        string       `json:"resource/service,omitempty"`
	ResourceID     string       `json:"resource/id"`
	Region         string       `json:"resource/region,omitempty"`
	InvoiceID      string       `json:"bill/invoice_id,omitempty"`
	UsageAmount    string       `json:"usage/amount,omitempty"`
	Cost           string       `json:"cost/cost"`
	DiscountedCost string       `json:"cost/discounted_cost,omitempty"`
	UsageStart     string       `json:"time/usage_start"`
	UsageEnd       string       `json:"time/usage_end,omitempty"`
}

// Get returns the value for a canonical field key and whether the record
// carries it.
func (r Record) Get(key string) (string, bool) {
	var v string
	switch key {
	case FieldLineItemType:
		v = string(r.LineItemType)
	case FieldService:
		v = r.Service
	case FieldResourceID:
		v = r.ResourceID
	case FieldRegion:
		v = r.Region
	case FieldInvoiceID:
		v = r.InvoiceID
	case FieldUsageAmount:
		v = r.UsageAmount
	case FieldCost:
		v = r.Cost
	case FieldDiscountedCost:
		v = r.DiscountedCost
	case FieldUsageStart:
		v = r.UsageStart
	case FieldUsageEnd:
		v = r.UsageEnd
	default:
		return "", false
	}
	return v, v != ""
}

// Set assigns the value for a canonical field key. Unknown keys are an error
// so the CSV reader rejects columns outside the schema.
func (r *Record) Set(key, value string) error {
	switch key {
	case FieldLineItemType:
		r.LineItemType = LineItemType(value)
	case FieldService:
		r.Service = value
	case FieldResourceID:
		r.ResourceID = value
	case FieldRegion:
		r.Region = value
	case FieldInvoiceID:
		r.InvoiceID = value
	case FieldUsageAmount:
		r.UsageAmount = value
	case FieldCost:
		r.Cost = value
	case FieldDiscountedCost:
		r.DiscountedCost = value
	case FieldUsageStart:
		r.UsageStart = value
	case FieldUsageEnd:
		r.UsageEnd = value
	default:
		return fmt.Errorf("unknown CBF field: %s", key)
	}
	return nil
}

// Validate enforces the fields every CBF record must carry regardless of
// line-item type.
func (r Record) Validate() error {
	if r.LineItemType == "" {
		return fmt.Errorf("missing %s", FieldLineItemType)
	}
	if r.ResourceID == "" {
		return fmt.Errorf("missing %s", FieldResourceID)
	}
	if r.Cost == "" {
		return fmt.Errorf("missing %s", FieldCost)
	}
	if r.UsageStart == "" {
		return fmt.Errorf("missing %s", FieldUsageStart)
	}
	return nil
}

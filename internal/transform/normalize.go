package transform

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"billing-bridge/internal/source"
	"billing-bridge/pkg/cbf"
)

// Currency arithmetic runs on shopspring decimals, never binary floats.
// Direct field mappings pass the source text through verbatim so values like
// "19.990" survive the round trip unchanged; only derived fields are
// re-serialized, at the operand scale.

// checkDecimal validates that a money/quantity field parses as a decimal.
func checkDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("field %q: not a decimal value: %q", field, value)
	}
	return d, nil
}

// atScale renders d at its full stored scale: "10.005" minus "0.005" comes
// out as "10.000", not "10".
func atScale(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(int32(-d.Exponent()))
	}
	return d.String()
}

// NormalizeInvoiceItem maps an API invoice line item to a CBF Usage record.
// The service category is derived from the item label; an absent region
// normalizes to the literal "None".
func NormalizeInvoiceItem(item source.InvoiceItem, invoiceID int) (cbf.Record, error) {
	if item.Label == "" {
		return cbf.Record{}, fmt.Errorf("missing required field %q", "label")
	}
	if item.From == "" {
		return cbf.Record{}, fmt.Errorf("missing required field %q", "from")
	}
	if string(item.Total) == "" {
		return cbf.Record{}, fmt.Errorf("missing required field %q", "total")
	}
	if _, err := checkDecimal("total", item.Total.String()); err != nil {
		return cbf.Record{}, err
	}

	amount := item.Quantity.String()
	if amount != "" {
		if _, err := checkDecimal("quantity", amount); err != nil {
			return cbf.Record{}, err
		}
	}

	region := item.Region
	if region == "" {
		region = "None"
	}

	return cbf.Record{
		LineItemType: cbf.TypeUsage,
		Service:      Classify(item.Label),
		ResourceID:   item.Label,
		Region:       region,
		InvoiceID:    strconv.Itoa(invoiceID),
		UsageAmount:  amount,
		Cost:         item.Total.String(),
		UsageStart:   item.From,
		UsageEnd:     item.To,
	}, nil
}

// NormalizeUsageRow maps a flat usage row to a CBF Usage record. The
// discounted cost is cost minus abs(discount), computed in decimal
// arithmetic.
func NormalizeUsageRow(row source.UsageRow) (cbf.Record, error) {
	cost, err := checkDecimal("cost", row.Cost)
	if err != nil {
		return cbf.Record{}, err
	}
	disc, err := checkDecimal("discount", row.Discount)
	if err != nil {
		return cbf.Record{}, err
	}

	return cbf.Record{
		LineItemType:   cbf.TypeUsage,
		Service:        row.SKU,
		ResourceID:     "instance-" + row.InstanceID,
		UsageStart:     row.UsageDate,
		Cost:           row.Cost,
		DiscountedCost: atScale(cost.Sub(disc.Abs())),
	}, nil
}

// NormalizeCommitmentRow maps a purchase-commitment row to a CBF
// CommittedUsePurchase record. Cost is duplicated into both cost fields.
func NormalizeCommitmentRow(row source.CommitmentRow) (cbf.Record, error) {
	if _, err := checkDecimal("cost", row.Cost); err != nil {
		return cbf.Record{}, err
	}

	return cbf.Record{
		LineItemType:   cbf.TypeCommittedUsePurchase,
		Service:        "CommittedUse",
		ResourceID:     "commit-" + row.CommitmentID,
		UsageStart:     row.CommitmentDate,
		Cost:           row.Cost,
		DiscountedCost: row.Cost,
	}, nil
}

// NormalizeDiscountRow maps a discount row to a CBF Discount record. The
// discount amount is duplicated into both cost fields.
func NormalizeDiscountRow(row source.DiscountRow) (cbf.Record, error) {
	if _, err := checkDecimal("discount", row.Discount); err != nil {
		return cbf.Record{}, err
	}

	return cbf.Record{
		LineItemType:   cbf.TypeDiscount,
		Service:        row.DiscountType,
		ResourceID:     "discount-" + row.DiscountID,
		UsageStart:     row.UsageDate,
		Cost:           row.Discount,
		DiscountedCost: row.Discount,
	}, nil
}

package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"billing-bridge/pkg/errors"
)

// Required columns per dataset.
var (
	usageColumns      = []string{"sku", "instance_id", "usage_date", "cost", "discount"}
	commitmentColumns = []string{"commitment_id", "commitment_date", "cost"}
	discountColumns   = []string{"discount_id", "discount_type", "usage_date", "discount"}
)

// table is a parsed CSV file with a column index.
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.NewSourceUnavailableError(path, fmt.Errorf("failed to read header: %w", err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	// A dataset whose header lacks a required column is malformed as a whole,
	// not row by row.
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, errors.NewSourceUnavailableError(path, fmt.Errorf("missing required column %q", name))
		}
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewSourceUnavailableError(path, err)
		}
		rows = append(rows, row)
	}

	return &table{path: path, columns: columns, rows: rows}, nil
}

// get returns the named cell of a row, or false when the row is too short or
// the value is empty.
func (t *table) get(row []string, name string) (string, bool) {
	i := t.columns[name]
	if i >= len(row) || row[i] == "" {
		return "", false
	}
	return row[i], true
}

// ceiling escalates once skipped rows exceed the configured failure budget.
func ceiling(path string, skipped []Skip, maxFailures int) error {
	if len(skipped) > maxFailures {
		return &errors.PipelineError{
			Code:     errors.ErrCodeMalformedRecord,
			Message:  fmt.Sprintf("%d malformed rows exceeds failure ceiling of %d", len(skipped), maxFailures),
			Severity: errors.SeverityFatal,
			Source:   path,
		}
	}
	return nil
}

// ReadUsage reads the flat usage export. Rows missing a required value are
// skipped and reported; the read fails once skips exceed maxFailures.
func ReadUsage(path string, maxFailures int) ([]UsageRow, []Skip, error) {
	t, err := readTable(path, usageColumns)
	if err != nil {
		return nil, nil, err
	}

	var out []UsageRow
	var skipped []Skip
	for i, row := range t.rows {
		rec := UsageRow{Row: i + 1}
		ok := true
		for _, col := range usageColumns {
			v, present := t.get(row, col)
			if !present {
				skipped = append(skipped, Skip{Row: i + 1, Reason: fmt.Sprintf("missing required column %q", col)})
				ok = false
				break
			}
			switch col {
			case "sku":
				rec.SKU = v
			case "instance_id":
				rec.InstanceID = v
			case "usage_date":
				rec.UsageDate = v
			case "cost":
				rec.Cost = v
			case "discount":
				rec.Discount = v
			}
		}
		if ok {
			out = append(out, rec)
		}
	}

	if err := ceiling(path, skipped, maxFailures); err != nil {
		return nil, skipped, err
	}
	return out, skipped, nil
}

// ReadCommitments reads the purchase-commitment export.
func ReadCommitments(path string, maxFailures int) ([]CommitmentRow, []Skip, error) {
	t, err := readTable(path, commitmentColumns)
	if err != nil {
		return nil, nil, err
	}

	var out []CommitmentRow
	var skipped []Skip
	for i, row := range t.rows {
		rec := CommitmentRow{Row: i + 1}
		ok := true
		for _, col := range commitmentColumns {
			v, present := t.get(row, col)
			if !present {
				skipped = append(skipped, Skip{Row: i + 1, Reason: fmt.Sprintf("missing required column %q", col)})
				ok = false
				break
			}
			switch col {
			case "commitment_id":
				rec.CommitmentID = v
			case "commitment_date":
				rec.CommitmentDate = v
			case "cost":
				rec.Cost = v
			}
		}
		if ok {
			out = append(out, rec)
		}
	}

	if err := ceiling(path, skipped, maxFailures); err != nil {
		return nil, skipped, err
	}
	return out, skipped, nil
}

// ReadDiscounts reads the discount export.
func ReadDiscounts(path string, maxFailures int) ([]DiscountRow, []Skip, error) {
	t, err := readTable(path, discountColumns)
	if err != nil {
		return nil, nil, err
	}

	var out []DiscountRow
	var skipped []Skip
	for i, row := range t.rows {
		rec := DiscountRow{Row: i + 1}
		ok := true
		for _, col := range discountColumns {
			v, present := t.get(row, col)
			if !present {
				skipped = append(skipped, Skip{Row: i + 1, Reason: fmt.Sprintf("missing required column %q", col)})
				ok = false
				break
			}
			switch col {
			case "discount_id":
				rec.DiscountID = v
			case "discount_type":
				rec.DiscountType = v
			case "usage_date":
				rec.UsageDate = v
			case "discount":
				rec.Discount = v
			}
		}
		if ok {
			out = append(out, rec)
		}
	}

	if err := ceiling(path, skipped, maxFailures); err != nil {
		return nil, skipped, err
	}
	return out, skipped, nil
}

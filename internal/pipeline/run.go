// Package pipeline orchestrates one run: read sources, normalize, classify,
// assemble the batch, and account for every skipped row. Execution is
// sequential; each invoice's item fetch runs to completion before the next
// begins. Invoice processing is independent, so this could be parallelized
// behind a merge-after-collect discipline, but current volumes do not need it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"billing-bridge/internal/config"
	"billing-bridge/internal/source"
	"billing-bridge/internal/transform"
	"billing-bridge/pkg/cbf"
	"billing-bridge/pkg/errors"
)

// SourceReport accounts for one input's rows.
type SourceReport struct {
	Source  string
	Read    int
	Emitted int
	Skipped []source.Skip
}

// Report is the run summary. Every row read is either emitted or listed in a
// source's skips; nothing is silently swallowed.
type Report struct {
	Sources []*SourceReport
}

func (r *Report) add(name string) *SourceReport {
	sr := &SourceReport{Source: name}
	r.Sources = append(r.Sources, sr)
	return sr
}

// TotalSkipped counts skipped rows across all sources.
func (r *Report) TotalSkipped() int {
	n := 0
	for _, sr := range r.Sources {
		n += len(sr.Skipped)
	}
	return n
}

// Pipeline runs the extract-transform-assemble flow.
type Pipeline struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// skip logs one skipped row, records it, and trips the failure ceiling when
// the run's total goes over budget.
func (p *Pipeline) skip(report *Report, sr *SourceReport, row int, reason string) error {
	warn := errors.NewMalformedRecordError(sr.Source, row, reason)
	p.logger.Warn().Str("source", sr.Source).Int("row", row).Msg(warn.Message)
	sr.Skipped = append(sr.Skipped, source.Skip{Row: row, Reason: reason})

	if report.TotalSkipped() > p.cfg.MaxRowFailures {
		return &errors.PipelineError{
			Code:     errors.ErrCodeMalformedRecord,
			Message:  fmt.Sprintf("%d malformed rows exceeds failure ceiling of %d", report.TotalSkipped(), p.cfg.MaxRowFailures),
			Severity: errors.SeverityFatal,
			Source:   sr.Source,
		}
	}
	return nil
}

// SelectInvoices fetches the invoice list and applies the trailing window.
func (p *Pipeline) SelectInvoices(ctx context.Context, client *source.Client) ([]source.Invoice, error) {
	invoices, err := client.FetchInvoices(ctx)
	if err != nil {
		return nil, err
	}

	kept, err := transform.FilterByWindow(invoices, p.cfg.WindowDays, time.Now())
	if err != nil {
		return nil, errors.NewSourceUnavailableError("invoice-api", err)
	}

	p.logger.Info().
		Int("fetched", len(invoices)).
		Int("in_window", len(kept)).
		Int("window_days", p.cfg.WindowDays).
		Msg("selected invoices")
	return kept, nil
}

// RunInvoices builds a batch from every in-window invoice's line items.
func (p *Pipeline) RunInvoices(ctx context.Context, client *source.Client) (*cbf.Batch, *Report, error) {
	invoices, err := p.SelectInvoices(ctx, client)
	if err != nil {
		return nil, nil, err
	}

	batch := cbf.NewBatch()
	report := &Report{}

	for _, inv := range invoices {
		sr := report.add(fmt.Sprintf("invoice-%d", inv.ID))

		items, err := client.FetchInvoiceItems(ctx, inv.ID)
		if err != nil {
			return nil, report, err
		}
		sr.Read = len(items)

		for i, item := range items {
			rec, err := transform.NormalizeInvoiceItem(item, inv.ID)
			if err != nil {
				if cerr := p.skip(report, sr, i+1, err.Error()); cerr != nil {
					return nil, report, cerr
				}
				continue
			}
			if err := batch.Append(rec); err != nil {
				return nil, report, err
			}
			sr.Emitted++
		}
	}

	return batch, report, nil
}

// RunTables builds a batch from the flat-file datasets. The usage path is
// required; commitments and discounts are optional.
func (p *Pipeline) RunTables(usagePath, commitmentsPath, discountsPath string) (*cbf.Batch, *Report, error) {
	batch := cbf.NewBatch()
	report := &Report{}

	usage, skipped, err := source.ReadUsage(usagePath, p.cfg.MaxRowFailures)
	if err != nil {
		return nil, report, err
	}
	sr := report.add(usagePath)
	sr.Read = len(usage) + len(skipped)
	for _, sk := range skipped {
		if cerr := p.skip(report, sr, sk.Row, sk.Reason); cerr != nil {
			return nil, report, cerr
		}
	}
	for _, row := range usage {
		rec, err := transform.NormalizeUsageRow(row)
		if err != nil {
			if cerr := p.skip(report, sr, row.Row, err.Error()); cerr != nil {
				return nil, report, cerr
			}
			continue
		}
		if err := batch.Append(rec); err != nil {
			return nil, report, err
		}
		sr.Emitted++
	}

	if commitmentsPath != "" {
		commitments, skipped, err := source.ReadCommitments(commitmentsPath, p.cfg.MaxRowFailures)
		if err != nil {
			return nil, report, err
		}
		sr := report.add(commitmentsPath)
		sr.Read = len(commitments) + len(skipped)
		for _, sk := range skipped {
			if cerr := p.skip(report, sr, sk.Row, sk.Reason); cerr != nil {
				return nil, report, cerr
			}
		}
		for _, row := range commitments {
			rec, err := transform.NormalizeCommitmentRow(row)
			if err != nil {
				if cerr := p.skip(report, sr, row.Row, err.Error()); cerr != nil {
					return nil, report, cerr
				}
				continue
			}
			if err := batch.Append(rec); err != nil {
				return nil, report, err
			}
			sr.Emitted++
		}
	}

	if discountsPath != "" {
		discounts, skipped, err := source.ReadDiscounts(discountsPath, p.cfg.MaxRowFailures)
		if err != nil {
			return nil, report, err
		}
		sr := report.add(discountsPath)
		sr.Read = len(discounts) + len(skipped)
		for _, sk := range skipped {
			if cerr := p.skip(report, sr, sk.Row, sk.Reason); cerr != nil {
				return nil, report, cerr
			}
		}
		for _, row := range discounts {
			rec, err := transform.NormalizeDiscountRow(row)
			if err != nil {
				if cerr := p.skip(report, sr, row.Row, err.Error()); cerr != nil {
					return nil, report, cerr
				}
				continue
			}
			if err := batch.Append(rec); err != nil {
				return nil, report, err
			}
			sr.Emitted++
		}
	}

	return batch, report, nil
}

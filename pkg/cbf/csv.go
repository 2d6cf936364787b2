package cbf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// WriteCSV serializes the batch to a CSV file: deterministic union header
// followed by one row per record.
func WriteCSV(b *Batch, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSVTo(b, f); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSVTo writes the batch to an arbitrary writer.
func WriteCSVTo(b *Batch, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := b.Header()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range b.Records() {
		for i, key := range header {
			v, _ := r.Get(key)
			row[i] = v
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a previously written CBF file back into a batch. Values are
// carried as raw strings; nothing is reparsed or reformatted.
func ReadCSV(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSVFrom(f)
}

// ReadCSVFrom reads CBF rows from an arbitrary reader.
func ReadCSVFrom(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	batch := NewBatch()
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		var rec Record
		for i, key := range header {
			if row[i] == "" {
				continue
			}
			if err := rec.Set(key, row[i]); err != nil {
				return nil, err
			}
		}
		if err := batch.Append(rec); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

package cbf

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch accumulates normalized records in append order, ready for one billing
// drop. Records are not mutated after assembly.
type Batch struct {
	ID        uuid.UUID
	CreatedAt time.Time

	records []Record
}

func NewBatch() *Batch {
	return &Batch{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
}

// Append validates and adds a record. Input order is preserved.
func (b *Batch) Append(r Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid CBF record: %w", err)
	}
	b.records = append(b.records, r)
	return nil
}

func (b *Batch) Records() []Record {
	return b.records
}

func (b *Batch) Len() int {
	return len(b.records)
}

// Header returns the union of field keys present across all records, in the
// fixed canonical order. Records missing one of these keys render as empty
// values, never errors.
func (b *Batch) Header() []string {
	present := make(map[string]bool, len(FieldOrder))
	for _, r := range b.records {
		for _, key := range FieldOrder {
			if _, ok := r.Get(key); ok {
				present[key] = true
			}
		}
	}

	header := make([]string, 0, len(present))
	for _, key := range FieldOrder {
		if present[key] {
			header = append(header, key)
		}
	}
	return header
}

package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-bridge/internal/source"
)

func TestFilterByWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -90)

	invoices := []source.Invoice{
		{ID: 1, Date: cutoff.Format("2006-01-02T15:04:05")},                  // exactly at cutoff: excluded
		{ID: 2, Date: cutoff.Add(time.Second).Format("2006-01-02T15:04:05")}, // one second inside: included
		{ID: 3, Date: now.Format("2006-01-02T15:04:05")},
		{ID: 4, Date: cutoff.Add(-24 * time.Hour).Format("2006-01-02T15:04:05")},
	}

	kept, err := FilterByWindow(invoices, 90, now)
	require.NoError(t, err)

	var ids []int
	for _, inv := range kept {
		ids = append(ids, inv.ID)
	}
	assert.ElementsMatch(t, []int{2, 3}, ids)
}

func TestFilterByWindowZeroDays(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	invoices := []source.Invoice{
		{ID: 1, Date: now.Add(-time.Hour).Format("2006-01-02T15:04:05")},
	}

	kept, err := FilterByWindow(invoices, 0, now)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestFilterByWindowBadDate(t *testing.T) {
	invoices := []source.Invoice{
		{ID: 7, Date: "not-a-date"},
	}

	_, err := FilterByWindow(invoices, 90, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice 7")
}

package cbf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchAppendValidates(t *testing.T) {
	b := NewBatch()

	err := b.Append(Record{LineItemType: TypeUsage, ResourceID: "r", Cost: "1"})
	require.Error(t, err, "missing usage start must be rejected")

	err = b.Append(Record{
		LineItemType: TypeUsage,
		ResourceID:   "r",
		Cost:         "1",
		UsageStart:   "2024-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
}

func TestBatchPreservesOrder(t *testing.T) {
	b := NewBatch()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.Append(Record{
			LineItemType: TypeUsage,
			ResourceID:   id,
			Cost:         "1",
			UsageStart:   "2024-05-01",
		}))
	}

	var ids []string
	for _, r := range b.Records() {
		ids = append(ids, r.ResourceID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestBatchHeaderIsUnionOfKeys(t *testing.T) {
	b := NewBatch()

	// Usage record without a usage_end
	require.NoError(t, b.Append(Record{
		LineItemType:   TypeUsage,
		Service:        "compute-small",
		ResourceID:     "instance-1",
		Cost:           "20.00",
		DiscountedCost: "17.50",
		UsageStart:     "2024-05-01",
	}))
	// commitment record, never has usage_end or usage_amount
	require.NoError(t, b.Append(Record{
		LineItemType: TypeCommittedUsePurchase,
		Service:      "CommittedUse",
		ResourceID:   "commit-1",
		Cost:         "100.00",
		UsageStart:   "2024-04-01",
	}))

	assert.Equal(t, []string{
		FieldLineItemType,
		FieldService,
		FieldResourceID,
		FieldCost,
		FieldDiscountedCost,
		FieldUsageStart,
	}, b.Header())
}

func TestBatchHeaderIncludesSparseKeys(t *testing.T) {
	b := NewBatch()

	require.NoError(t, b.Append(Record{
		LineItemType: TypeUsage,
		ResourceID:   "a",
		Cost:         "1",
		UsageStart:   "2024-05-01",
		UsageEnd:     "2024-06-01",
	}))
	require.NoError(t, b.Append(Record{
		LineItemType: TypeUsage,
		ResourceID:   "b",
		Cost:         "2",
		UsageStart:   "2024-05-01",
	}))

	// one record carries usage_end, so the header must include it
	assert.Contains(t, b.Header(), FieldUsageEnd)
}

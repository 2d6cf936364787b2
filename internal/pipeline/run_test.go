package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-bridge/internal/config"
	"billing-bridge/internal/source"
	"billing-bridge/pkg/cbf"
	"billing-bridge/pkg/errors"
	"billing-bridge/pkg/platform"
)

func testConfig() *config.Config {
	return &config.Config{
		WindowDays:     90,
		MaxRowFailures: 10,
		HTTPTimeout:    5 * time.Second,
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// End-to-end over the three flat-file datasets.
func TestRunTables(t *testing.T) {
	dir := t.TempDir()
	usage := writeFile(t, dir, "usage.csv",
		"sku,instance_id,usage_date,cost,discount\n"+
			"compute-small,abc123,2024-05-01,20.00,2.50\n")
	commitments := writeFile(t, dir, "commitments.csv",
		"commitment_id,commitment_date,cost\n"+
			"c-77,2024-04-01,100.00\n")
	discounts := writeFile(t, dir, "discounts.csv",
		"discount_id,discount_type,usage_date,discount\n"+
			"d-9,PromoCredit,2024-05-01,5.00\n")

	p := New(testConfig(), zerolog.Nop())
	batch, report, err := p.RunTables(usage, commitments, discounts)
	require.NoError(t, err)

	require.Equal(t, 3, batch.Len())
	recs := batch.Records()
	assert.Equal(t, cbf.TypeUsage, recs[0].LineItemType)
	assert.Equal(t, "17.50", recs[0].DiscountedCost)
	assert.Equal(t, cbf.TypeCommittedUsePurchase, recs[1].LineItemType)
	assert.Equal(t, cbf.TypeDiscount, recs[2].LineItemType)

	require.Len(t, report.Sources, 3)
	assert.Equal(t, 0, report.TotalSkipped())
	for _, sr := range report.Sources {
		assert.Equal(t, 1, sr.Read)
		assert.Equal(t, 1, sr.Emitted)
	}
}

func TestRunTablesOptionalInputs(t *testing.T) {
	dir := t.TempDir()
	usage := writeFile(t, dir, "usage.csv",
		"sku,instance_id,usage_date,cost,discount\n"+
			"compute-small,abc123,2024-05-01,20.00,0\n")

	p := New(testConfig(), zerolog.Nop())
	batch, report, err := p.RunTables(usage, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Len())
	assert.Len(t, report.Sources, 1)
}

func TestRunTablesAccountsForSkips(t *testing.T) {
	dir := t.TempDir()
	usage := writeFile(t, dir, "usage.csv",
		"sku,instance_id,usage_date,cost,discount\n"+
			"compute-small,abc123,2024-05-01,20.00,2.50\n"+
			"compute-small,def456,2024-05-01,not-a-number,0\n")

	p := New(testConfig(), zerolog.Nop())
	batch, report, err := p.RunTables(usage, "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Len())
	require.Len(t, report.Sources, 1)
	assert.Equal(t, 2, report.Sources[0].Read)
	assert.Equal(t, 1, report.Sources[0].Emitted)
	require.Len(t, report.Sources[0].Skipped, 1)
	assert.Equal(t, 2, report.Sources[0].Skipped[0].Row)
}

func TestRunTablesFailureCeiling(t *testing.T) {
	dir := t.TempDir()
	usage := writeFile(t, dir, "usage.csv",
		"sku,instance_id,usage_date,cost,discount\n"+
			"a,i-1,2024-05-01,x,0\n"+
			"b,i-2,2024-05-01,y,0\n")

	cfg := testConfig()
	cfg.MaxRowFailures = 1
	p := New(cfg, zerolog.Nop())

	_, _, err := p.RunTables(usage, "", "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedRecord))
}

// End-to-end over the paginated invoice API.
func TestRunInvoices(t *testing.T) {
	now := time.Now()
	inWindow := now.AddDate(0, 0, -10).Format("2006-01-02T15:04:05")
	outOfWindow := now.AddDate(0, 0, -120).Format("2006-01-02T15:04:05")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/account/invoices":
			fmt.Fprintf(w, `{"data": [
				{"id": 1, "date": "%s", "total": 24.00},
				{"id": 2, "date": "%s", "total": 10.00}
			], "page": 1, "pages": 1, "results": 2}`, inWindow, outOfWindow)
		case "/v4/account/invoices/1/items":
			fmt.Fprint(w, `{"data": [
				{"label": "Linode 4GB - web-1", "quantity": 730, "total": 24.00,
				 "from": "2024-05-01T00:00:00", "to": "2024-06-01T00:00:00"}
			], "page": 1, "pages": 1, "results": 1}`)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	httpc := platform.NewHTTPClient(5*time.Second, zerolog.Nop())
	client := source.NewClient(httpc, srv.URL, "v4", "tok", zerolog.Nop())
	p := New(testConfig(), zerolog.Nop())

	batch, report, err := p.RunInvoices(context.Background(), client)
	require.NoError(t, err)

	// invoice 2 is outside the window; its items are never fetched
	require.Equal(t, 1, batch.Len())
	rec := batch.Records()[0]
	assert.Equal(t, cbf.TypeUsage, rec.LineItemType)
	assert.Equal(t, "Linode 4GB", rec.Service)
	assert.Equal(t, "1", rec.InvoiceID)
	assert.Equal(t, "None", rec.Region)
	assert.Equal(t, "24.00", rec.Cost)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, "invoice-1", report.Sources[0].Source)
}

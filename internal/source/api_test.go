package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-bridge/pkg/errors"
	"billing-bridge/pkg/platform"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	httpc := platform.NewHTTPClient(5*time.Second, zerolog.Nop())
	return NewClient(httpc, srv.URL, "v4", "test-token", zerolog.Nop())
}

func TestFetchInvoicesPagination(t *testing.T) {
	var requests []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"data": [
				{"id": %s1, "label": "invoice", "date": "2024-05-01T00:00:00", "total": 10.00},
				{"id": %s2, "label": "invoice", "date": "2024-05-02T00:00:00", "total": 20.00}
			],
			"page": %s, "pages": 3, "results": 6
		}`, page, page, page)
	}))
	defer srv.Close()

	invoices, err := testClient(t, srv).FetchInvoices(context.Background())
	require.NoError(t, err)

	// page 1 reported pages=3, so exactly two additional requests follow
	assert.Equal(t, []string{
		"/v4/account/invoices?page=1",
		"/v4/account/invoices?page=2",
		"/v4/account/invoices?page=3",
	}, requests)

	// merged in page order
	require.Len(t, invoices, 6)
	assert.Equal(t, []int{11, 12, 21, 22, 31, 32},
		[]int{invoices[0].ID, invoices[1].ID, invoices[2].ID, invoices[3].ID, invoices[4].ID, invoices[5].ID})
}

func TestFetchInvoicesSinglePage(t *testing.T) {
	var count int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		fmt.Fprint(w, `{"data": [{"id": 1, "date": "2024-05-01T00:00:00"}], "page": 1, "pages": 1, "results": 1}`)
	}))
	defer srv.Close()

	invoices, err := testClient(t, srv).FetchInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "a single-page response must short-circuit")
	assert.Len(t, invoices, 1)
}

func TestFetchInvoicesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors": [{"reason": "unauthorized"}]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).FetchInvoices(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSourceUnavailable))
}

func TestFetchInvoicesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).FetchInvoices(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSourceUnavailable))
}

func TestFetchInvoiceItems(t *testing.T) {
	var requests []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		fmt.Fprint(w, `{
			"data": [
				{"label": "Linode 4GB - web-1", "quantity": 730, "total": 24.00,
				 "from": "2024-05-01T00:00:00", "to": "2024-06-01T00:00:00", "region": "us-east"}
			],
			"page": 1, "pages": 1, "results": 1
		}`)
	}))
	defer srv.Close()

	items, err := testClient(t, srv).FetchInvoiceItems(context.Background(), 987)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v4/account/invoices/987/items?page=1"}, requests)

	require.Len(t, items, 1)
	assert.Equal(t, "Linode 4GB - web-1", items[0].Label)
	// numeric fields keep their source text
	assert.Equal(t, "730", items[0].Quantity.String())
	assert.Equal(t, "24.00", items[0].Total.String())
}

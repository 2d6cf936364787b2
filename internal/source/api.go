package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"billing-bridge/pkg/errors"
	"billing-bridge/pkg/platform"
)

// Client reads invoices from the paginated invoice API. Pages are fetched
// sequentially, 1..pages, and concatenated in page order. There is no retry:
// a failed page aborts the whole fetch.
type Client struct {
	http    *platform.HTTPClient
	baseURL string
	version string
	token   string
	logger  zerolog.Logger
}

func NewClient(httpc *platform.HTTPClient, baseURL, version, token string, logger zerolog.Logger) *Client {
	return &Client{
		http:    httpc,
		baseURL: baseURL,
		version: version,
		token:   token,
		logger:  logger,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.token,
	}
}

type invoicePage struct {
	Data    []Invoice `json:"data"`
	Page    int       `json:"page"`
	Pages   int       `json:"pages"`
	Results int       `json:"results"`
}

type itemPage struct {
	Data    []InvoiceItem `json:"data"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Results int           `json:"results"`
}

// FetchInvoices returns every invoice on the account, merged across pages.
func (c *Client) FetchInvoices(ctx context.Context) ([]Invoice, error) {
	var all []Invoice

	pages := 1
	for p := 1; p <= pages; p++ {
		url := fmt.Sprintf("%s/%s/account/invoices?page=%d", c.baseURL, c.version, p)

		var env invoicePage
		if err := c.http.GetJSON(ctx, url, c.headers(), &env); err != nil {
			return nil, errors.NewSourceUnavailableError("invoice-api", err)
		}

		if p == 1 && env.Pages > 1 {
			pages = env.Pages
		}
		all = append(all, env.Data...)
	}

	c.logger.Debug().Int("invoices", len(all)).Int("pages", pages).Msg("fetched invoice list")
	return all, nil
}

// FetchInvoiceItems returns every line item of one invoice, merged across
// pages. Same pagination contract as the invoice list.
func (c *Client) FetchInvoiceItems(ctx context.Context, invoiceID int) ([]InvoiceItem, error) {
	var all []InvoiceItem

	pages := 1
	for p := 1; p <= pages; p++ {
		url := fmt.Sprintf("%s/%s/account/invoices/%d/items?page=%d", c.baseURL, c.version, invoiceID, p)

		var env itemPage
		if err := c.http.GetJSON(ctx, url, c.headers(), &env); err != nil {
			return nil, errors.NewSourceUnavailableError("invoice-api", err)
		}

		if p == 1 && env.Pages > 1 {
			pages = env.Pages
		}
		all = append(all, env.Data...)
	}

	c.logger.Debug().Int("invoice_id", invoiceID).Int("items", len(all)).Msg("fetched invoice items")
	return all, nil
}

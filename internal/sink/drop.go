// Package sink delivers assembled CBF batches to the billing drop endpoint.
package sink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"billing-bridge/pkg/cbf"
	"billing-bridge/pkg/errors"
	"billing-bridge/pkg/platform"
)

// Uploader posts billing drops to a connection-scoped URL, authenticated by
// API key.
type Uploader struct {
	http         *platform.HTTPClient
	baseURL      string
	connectionID string
	apiKey       string
	logger       zerolog.Logger
}

func NewUploader(httpc *platform.HTTPClient, baseURL, connectionID, apiKey string, logger zerolog.Logger) *Uploader {
	return &Uploader{
		http:         httpc,
		baseURL:      baseURL,
		connectionID: connectionID,
		apiKey:       apiKey,
		logger:       logger,
	}
}

type dropPayload struct {
	Data []cbf.Record `json:"data"`
}

// Upload sends the entire batch as one synchronous billing drop. No chunking
// and no retry: a non-success response surfaces the body verbatim and fails
// the run. On success the sink's response body is returned for echoing to the
// operator.
func (u *Uploader) Upload(ctx context.Context, batch *cbf.Batch) ([]byte, error) {
	url := fmt.Sprintf("%s/v2/connections/billing/anycost/%s/billing_drops", u.baseURL, u.connectionID)

	u.logger.Info().
		Str("batch_id", batch.ID.String()).
		Int("records", batch.Len()).
		Msg("uploading billing drop")

	status, body, err := u.http.PostJSON(ctx, url, map[string]string{"Authorization": u.apiKey}, dropPayload{Data: batch.Records()})
	if err != nil {
		return nil, fmt.Errorf("billing drop upload failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, errors.NewSinkRejectedError(status, string(body))
	}
	return body, nil
}

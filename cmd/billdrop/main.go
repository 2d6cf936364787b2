// billdrop - Common Billing Format bridge
//
// Usage:
//   billdrop fetch --window-days 90 --output cbf.csv --upload
//   billdrop convert --usage cloud_usage.csv --commitments cloud_purchase_commitments.csv --discounts cloud_discounts.csv
//   billdrop upload --input cbf.csv
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"billing-bridge/internal/archive"
	"billing-bridge/internal/config"
	"billing-bridge/internal/pipeline"
	"billing-bridge/internal/sink"
	"billing-bridge/internal/source"
	"billing-bridge/pkg/cbf"
	"billing-bridge/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "billdrop",
		Usage:   "Pull metered-usage invoices, normalize them into the Common Billing Format, and deliver billing drops",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"BILLDROP_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "source-url",
				Value:   "https://api.linode.com",
				Usage:   "Invoice source API base URL",
				EnvVars: []string{"SOURCE_URL"},
			},
			&cli.StringFlag{
				Name:    "api-version",
				Value:   "v4",
				Usage:   "Invoice source API path segment",
				EnvVars: []string{"API_VERSION"},
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token for the invoice source API",
				EnvVars: []string{"AUTH_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "sink-url",
				Value:   "https://api.cloudzero.com",
				Usage:   "Billing drop sink base URL",
				EnvVars: []string{"SINK_URL"},
			},
			&cli.StringFlag{
				Name:    "sink-connection-id",
				Usage:   "Billing drop connection id",
				EnvVars: []string{"SINK_CONNECTION_ID"},
			},
			&cli.StringFlag{
				Name:    "sink-api-key",
				Usage:   "API key for the billing drop sink",
				EnvVars: []string{"SINK_API_KEY"},
			},
			&cli.IntFlag{
				Name:    "window-days",
				Value:   90,
				Usage:   "Trailing invoice window in days",
				EnvVars: []string{"WINDOW_DAYS"},
			},
			&cli.IntFlag{
				Name:    "max-row-failures",
				Value:   10,
				Usage:   "Malformed-row ceiling before the run fails",
				EnvVars: []string{"MAX_ROW_FAILURES"},
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				Value:   30 * time.Second,
				Usage:   "Timeout for source and sink HTTP calls",
				EnvVars: []string{"HTTP_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "archive",
				Usage:   "Archive delivered batches to ClickHouse",
				EnvVars: []string{"ARCHIVE_ENABLED"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "billing",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
		},

		Commands: []*cli.Command{
			fetchCommand(),
			convertCommand(),
			uploadCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(c *cli.Context) *config.Config {
	return &config.Config{
		SourceURL:        c.String("source-url"),
		APIVersion:       c.String("api-version"),
		AuthToken:        c.String("auth-token"),
		SinkURL:          c.String("sink-url"),
		SinkConnectionID: c.String("sink-connection-id"),
		SinkAPIKey:       c.String("sink-api-key"),
		WindowDays:       c.Int("window-days"),
		MaxRowFailures:   c.Int("max-row-failures"),
		HTTPTimeout:      c.Duration("http-timeout"),
		Archive: config.Archive{
			Enabled:  c.Bool("archive"),
			Host:     c.String("clickhouse-host"),
			Port:     c.Int("clickhouse-port"),
			Database: c.String("clickhouse-database"),
			Username: c.String("clickhouse-user"),
			Password: c.String("clickhouse-password"),
		},
	}
}

// =============================================================================
// FETCH COMMAND
// =============================================================================

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Pull invoices from the metered-usage API and normalize them to CBF",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "cbf.csv",
				Usage:   "Path for the CBF CSV artifact",
			},
			&cli.BoolFlag{
				Name:  "upload",
				Usage: "Upload the batch to the billing drop sink",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "Only list the ids of in-window invoices",
			},
		},
		Action: runFetch,
	}
}

func runFetch(c *cli.Context) error {
	ctx := context.Background()
	cfg := buildConfig(c)
	logger := platform.InitLogger(c.String("log-level"))

	if err := cfg.ValidateSource(); err != nil {
		return err
	}
	if c.Bool("upload") {
		if err := cfg.ValidateSink(); err != nil {
			return err
		}
	}

	httpc := platform.NewHTTPClient(cfg.HTTPTimeout, logger)
	client := source.NewClient(httpc, cfg.SourceURL, cfg.APIVersion, cfg.AuthToken, logger)
	p := pipeline.New(cfg, logger)

	if c.Bool("list") {
		invoices, err := p.SelectInvoices(ctx, client)
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			fmt.Println(inv.ID)
		}
		return nil
	}

	batch, report, err := p.RunInvoices(ctx, client)
	if err != nil {
		return err
	}
	printReport(report)

	if err := cbf.WriteCSV(batch, c.String("output")); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d CBF rows to %s\n", batch.Len(), c.String("output"))

	if c.Bool("upload") {
		return deliver(ctx, cfg, logger, batch)
	}
	return nil
}

// =============================================================================
// CONVERT COMMAND
// =============================================================================

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Normalize flat CSV exports (usage, commitments, discounts) to CBF",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "usage",
				Usage:    "Path to the usage dataset",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "commitments",
				Usage: "Path to the purchase-commitment dataset",
			},
			&cli.StringFlag{
				Name:  "discounts",
				Usage: "Path to the discount dataset",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "cbf.csv",
				Usage:   "Path for the CBF CSV artifact",
			},
			&cli.BoolFlag{
				Name:  "upload",
				Usage: "Upload the batch to the billing drop sink",
			},
		},
		Action: runConvert,
	}
}

func runConvert(c *cli.Context) error {
	ctx := context.Background()
	cfg := buildConfig(c)
	logger := platform.InitLogger(c.String("log-level"))

	if c.Bool("upload") {
		if err := cfg.ValidateSink(); err != nil {
			return err
		}
	}

	p := pipeline.New(cfg, logger)
	batch, report, err := p.RunTables(c.String("usage"), c.String("commitments"), c.String("discounts"))
	if err != nil {
		return err
	}
	printReport(report)

	if err := cbf.WriteCSV(batch, c.String("output")); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d CBF rows to %s\n", batch.Len(), c.String("output"))

	if c.Bool("upload") {
		return deliver(ctx, cfg, logger, batch)
	}
	return nil
}

// =============================================================================
// UPLOAD COMMAND
// =============================================================================

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a previously written CBF CSV to the billing drop sink",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to a CBF CSV artifact",
				Required: true,
			},
		},
		Action: runUpload,
	}
}

func runUpload(c *cli.Context) error {
	ctx := context.Background()
	cfg := buildConfig(c)
	logger := platform.InitLogger(c.String("log-level"))

	if err := cfg.ValidateSink(); err != nil {
		return err
	}

	batch, err := cbf.ReadCSV(c.String("input"))
	if err != nil {
		return err
	}
	return deliver(ctx, cfg, logger, batch)
}

// =============================================================================
// DELIVERY
// =============================================================================

// deliver uploads the batch, echoes the sink response, and archives the batch
// when the archive is enabled.
func deliver(ctx context.Context, cfg *config.Config, logger zerolog.Logger, batch *cbf.Batch) error {
	httpc := platform.NewHTTPClient(cfg.HTTPTimeout, logger)
	uploader := sink.NewUploader(httpc, cfg.SinkURL, cfg.SinkConnectionID, cfg.SinkAPIKey, logger)

	body, err := uploader.Upload(ctx, batch)
	if err != nil {
		return err
	}

	var echoed interface{}
	if err := json.Unmarshal(body, &echoed); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(echoed)
	} else {
		fmt.Println(string(body))
	}

	if cfg.Archive.Enabled {
		store, err := archive.NewStore(&cfg.Archive)
		if err != nil {
			return fmt.Errorf("failed to connect to archive: %w", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := store.ArchiveBatch(ctx, batch); err != nil {
			return err
		}
		logger.Info().Str("batch_id", batch.ID.String()).Msg("archived billing drop")
	}
	return nil
}

func printReport(report *pipeline.Report) {
	for _, sr := range report.Sources {
		fmt.Fprintf(os.Stderr, "source %s: read %d, emitted %d, skipped %d\n",
			sr.Source, sr.Read, sr.Emitted, len(sr.Skipped))
		for _, sk := range sr.Skipped {
			fmt.Fprintf(os.Stderr, "  skipped row %d: %s\n", sk.Row, sk.Reason)
		}
	}
}

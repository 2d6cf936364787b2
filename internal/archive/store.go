// Package archive persists delivered billing drops to ClickHouse for audit.
// Optional: the pipeline runs fully without it.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"billing-bridge/internal/config"
	"billing-bridge/pkg/cbf"
)

// Store writes CBF batches to the billing_drops table.
type Store struct {
	conn clickhouse.Conn
	cfg  *config.Archive
}

// NewStore connects to ClickHouse.
func NewStore(cfg *config.Archive) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the archive table when missing. Money fields stay
// String so the decimal text delivered to the sink is archived verbatim.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS billing_drops (
			batch_id        UUID,
			delivered_at    DateTime,
			line_type       String,
			service         String,
			resource_id     String,
			region          String,
			invoice_id      String,
			usage_amount    String,
			cost            String,
			discounted_cost String,
			usage_start     String,
			usage_end       String
		)
		ENGINE = MergeTree()
		ORDER BY (batch_id, resource_id)
	`
	return s.conn.Exec(ctx, query)
}

// ArchiveBatch inserts every record of a delivered batch.
func (s *Store) ArchiveBatch(ctx context.Context, b *cbf.Batch) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO billing_drops (
			batch_id, delivered_at, line_type, service, resource_id, region,
			invoice_id, usage_amount, cost, discounted_cost, usage_start, usage_end
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}

	deliveredAt := time.Now().UTC()
	for _, r := range b.Records() {
		err := batch.Append(
			b.ID,
			deliveredAt,
			string(r.LineItemType),
			r.Service,
			r.ResourceID,
			r.Region,
			r.InvoiceID,
			r.UsageAmount,
			r.Cost,
			r.DiscountedCost,
			r.UsageStart,
			r.UsageEnd,
		)
		if err != nil {
			return fmt.Errorf("failed to append archive row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send archive batch: %w", err)
	}
	return nil
}

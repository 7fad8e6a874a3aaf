package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const InstancesTableSchema = `
	CREATE TABLE IF NOT EXISTS instances (
		id VARCHAR NOT NULL,
		provider VARCHAR NOT NULL,
		instance_type VARCHAR NOT NULL,
		family VARCHAR,
		region VARCHAR NOT NULL,
		vcpus DOUBLE,
		memory_gb DOUBLE,
		storage_gb DOUBLE,
		architecture VARCHAR,
		gpu BOOLEAN,
		gpu_count INTEGER,
		gpu_type VARCHAR,
		price_on_demand DOUBLE,
		price_spot DOUBLE,
		category VARCHAR,
		region_aggregated BOOLEAN,
		currency VARCHAR,
		updated_at TIMESTAMP,
		PRIMARY KEY (provider, instance_type, region)
	);
`

const RefreshState = `
	CREATE TABLE IF NOT EXISTS refresh_state (
		provider VARCHAR PRIMARY KEY,
		last_attempt_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_refreshed_at TIMESTAMP NULL,
		last_error VARCHAR NULL,
		records_count BIGINT NOT NULL DEFAULT 0
	);
`

const PriceHistory = `
	CREATE TABLE IF NOT EXISTS price_history (
		provider VARCHAR NOT NULL,
		instance_type VARCHAR NOT NULL,
		region VARCHAR NOT NULL,
		price_on_demand DOUBLE,
		price_spot DOUBLE,
		currency VARCHAR,
		recorded_at TIMESTAMP NOT NULL
	);
`

var bootQueries = []string{
	InstancesTableSchema,
	RefreshState,
	PriceHistory,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			if _, err := exec.ExecContext(context.Background(), query, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}

// InTransaction runs fn with a transaction carried in ctx, committing when fn succeeds.
func InTransaction(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(WithTransaction(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

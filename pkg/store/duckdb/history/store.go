package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/store/duckdb"
)

// DefaultLimit caps a history listing.
const DefaultLimit = 30

// Store keeps the prices seen by every cache refresh.
type Store interface {
	Enabled() bool
	Append(ctx context.Context, records []store.InstanceRecord, at time.Time) error
	List(ctx context.Context, q store.HistoryQuery) ([]store.PricePoint, error)
}

type historyStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &historyStore{db: db}, nil
}

func (s *historyStore) Enabled() bool {
	return true
}

func (s *historyStore) Append(ctx context.Context, records []store.InstanceRecord, at time.Time) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := duckdb.Conn(ctx, s.db).PrepareContext(ctx, `
		INSERT INTO price_history (provider, instance_type, region, price_on_demand, price_spot, currency, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.RegionAggregated {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.Provider, r.InstanceType, r.Region, r.PriceOnDemand, r.PriceSpot, r.Currency, at); err != nil {
			return fmt.Errorf("record price of %s/%s/%s: %w", r.Provider, r.InstanceType, r.Region, err)
		}
	}
	return nil
}

// List returns the newest points first.
func (s *historyStore) List(ctx context.Context, q store.HistoryQuery) ([]store.PricePoint, error) {
	var (
		where = []string{"provider = ?"}
		args  = []any{q.Provider}
	)
	if q.InstanceType != "" {
		where = append(where, "instance_type = ?")
		args = append(args, q.InstanceType)
	}
	if q.Region != "" {
		where = append(where, "region = ?")
		args = append(args, q.Region)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT provider, instance_type, region, price_on_demand, price_spot, currency, recorded_at
		FROM price_history
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY recorded_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	points := make([]store.PricePoint, 0)
	for rows.Next() {
		var (
			p           store.PricePoint
			price, spot sql.NullFloat64
			currency    sql.NullString
		)
		if err := rows.Scan(&p.Provider, &p.InstanceType, &p.Region, &price, &spot, &currency, &p.RecordedAt); err != nil {
			return nil, err
		}
		p.PriceOnDemand = price.Float64
		p.PriceSpot = spot.Float64
		p.Currency = currency.String
		points = append(points, p)
	}
	return points, rows.Err()
}

type disabled struct{}

// Disabled returns a Store that records nothing, for running without a cache.
func Disabled() Store {
	return disabled{}
}

func (disabled) Enabled() bool { return false }

func (disabled) Append(context.Context, []store.InstanceRecord, time.Time) error { return nil }

func (disabled) List(context.Context, store.HistoryQuery) ([]store.PricePoint, error) {
	return []store.PricePoint{}, nil
}

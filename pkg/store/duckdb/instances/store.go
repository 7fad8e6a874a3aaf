package instances

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/store/duckdb"
)

// Store is the best-effort instance cache. Writes are last-writer-wins on
// (provider, instance_type, region).
type Store interface {
	Enabled() bool
	Upsert(ctx context.Context, records []store.InstanceRecord) error
	// ReplaceProvider drops every cached row of provider and writes records in its place.
	ReplaceProvider(ctx context.Context, provider string, records []store.InstanceRecord) error
	List(ctx context.Context, q store.InstanceQuery) ([]store.InstanceRecord, error)
	GetByIDs(ctx context.Context, ids []string) ([]store.InstanceRecord, error)
	Regions(ctx context.Context, provider string) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

const columns = `id, provider, instance_type, family, region, vcpus, memory_gb, storage_gb,
	architecture, gpu, gpu_count, gpu_type, price_on_demand, price_spot, category,
	region_aggregated, currency, updated_at`

type instanceStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &instanceStore{db: db}, nil
}

func (s *instanceStore) Enabled() bool {
	return true
}

func (s *instanceStore) Upsert(ctx context.Context, records []store.InstanceRecord) error {
	records = dedupe(records)
	if len(records) == 0 {
		return nil
	}

	query := `INSERT OR REPLACE INTO instances (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := duckdb.Conn(ctx, s.db).PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err = stmt.ExecContext(ctx,
			r.ID,
			r.Provider,
			r.InstanceType,
			r.Family,
			r.Region,
			r.VCPUs,
			r.MemoryGB,
			r.StorageGB,
			r.Architecture,
			r.GPU,
			r.GPUCount,
			r.GPUType,
			r.PriceOnDemand,
			r.PriceSpot,
			r.Category,
			r.RegionAggregated,
			r.Currency,
			r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert %s/%s/%s: %w", r.Provider, r.InstanceType, r.Region, err)
		}
	}
	return nil
}

func (s *instanceStore) ReplaceProvider(ctx context.Context, provider string, records []store.InstanceRecord) error {
	if _, err := duckdb.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM instances WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("delete %s instances: %w", provider, err)
	}
	return s.Upsert(ctx, records)
}

func (s *instanceStore) List(ctx context.Context, q store.InstanceQuery) ([]store.InstanceRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, q.Provider)
	}
	if q.Region != "" {
		where = append(where, "region = ?")
		args = append(args, q.Region)
	}

	query := `SELECT ` + columns + ` FROM instances`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY provider, price_on_demand, instance_type, region"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()
	return scanInstanceRows(rows)
}

func (s *instanceStore) GetByIDs(ctx context.Context, ids []string) ([]store.InstanceRecord, error) {
	if len(ids) == 0 {
		return []store.InstanceRecord{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM instances WHERE id IN (%s)`, columns, strings.Join(placeholders, ","))
	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances by id: %w", err)
	}
	defer rows.Close()
	return scanInstanceRows(rows)
}

func (s *instanceStore) Regions(ctx context.Context, provider string) ([]string, error) {
	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT DISTINCT region FROM instances WHERE provider = ? ORDER BY region`, provider)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	regions := make([]string, 0)
	for rows.Next() {
		var region string
		if err := rows.Scan(&region); err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, rows.Err()
}

func (s *instanceStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	return count, nil
}

func scanInstanceRows(rows *sql.Rows) ([]store.InstanceRecord, error) {
	records := make([]store.InstanceRecord, 0)
	for rows.Next() {
		var (
			r                                   store.InstanceRecord
			family, architecture, gpuType       sql.NullString
			category, currency                  sql.NullString
			vcpus, memory, storage, price, spot sql.NullFloat64
			gpu, regionAggregated               sql.NullBool
			gpuCount                            sql.NullInt64
			updatedAt                           sql.NullTime
		)
		if err := rows.Scan(
			&r.ID, &r.Provider, &r.InstanceType, &family, &r.Region,
			&vcpus, &memory, &storage, &architecture, &gpu, &gpuCount, &gpuType,
			&price, &spot, &category, &regionAggregated, &currency, &updatedAt,
		); err != nil {
			return nil, err
		}

		r.Family = family.String
		r.Architecture = architecture.String
		r.GPUType = gpuType.String
		r.Category = category.String
		r.Currency = currency.String
		r.VCPUs = vcpus.Float64
		r.MemoryGB = memory.Float64
		r.StorageGB = storage.Float64
		r.PriceOnDemand = price.Float64
		r.PriceSpot = spot.Float64
		r.GPU = gpu.Bool
		r.RegionAggregated = regionAggregated.Bool
		r.GPUCount = int(gpuCount.Int64)
		r.UpdatedAt = updatedAt.Time

		records = append(records, r)
	}
	return records, rows.Err()
}

// dedupe keeps the last record per cache key.
func dedupe(records []store.InstanceRecord) []store.InstanceRecord {
	type key struct{ provider, instanceType, region string }
	idx := make(map[key]int, len(records))
	out := make([]store.InstanceRecord, 0, len(records))

	for _, r := range records {
		k := key{r.Provider, r.InstanceType, r.Region}
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}

package instances

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/store/duckdb"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	s, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: s}
}

func record(provider, typ, region string, price float64) store.InstanceRecord {
	return store.InstanceRecord{
		ID:            provider + "/" + typ + "/" + region,
		Provider:      provider,
		InstanceType:  typ,
		Family:        "general",
		Region:        region,
		VCPUs:         2,
		MemoryGB:      8,
		Architecture:  "x86_64",
		PriceOnDemand: price,
		Category:      "general",
		Currency:      "USD",
		UpdatedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		assert.NotNil(t, f.store)
		assert.True(t, f.store.Enabled())
	})

	t.Run("nil db", func(t *testing.T) {
		s, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestStore_UpsertAndList(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	gpu := record("aws", "g4dn.xlarge", "us-east-1", 0.526)
	gpu.GPU = true
	gpu.GPUCount = 1
	gpu.GPUType = "NVIDIA T4"

	require.NoError(t, f.store.Upsert(ctx, []store.InstanceRecord{
		record("aws", "m5.large", "us-east-1", 0.096),
		record("aws", "m5.large", "eu-west-1", 0.107),
		record("gcp", "e2-standard-2", "us-central1", 0.067),
		gpu,
	}))

	t.Run("list by provider ordered by price", func(t *testing.T) {
		got, err := f.store.List(ctx, store.InstanceQuery{Provider: "aws"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "us-east-1", got[0].Region)
		assert.Equal(t, "eu-west-1", got[1].Region)
		assert.True(t, gpu.UpdatedAt.Equal(got[2].UpdatedAt))
		got[2].UpdatedAt = gpu.UpdatedAt
		assert.Equal(t, gpu, got[2])
	})

	t.Run("region and limit", func(t *testing.T) {
		got, err := f.store.List(ctx, store.InstanceQuery{Provider: "aws", Region: "us-east-1", Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m5.large", got[0].InstanceType)
	})

	t.Run("last writer wins", func(t *testing.T) {
		updated := record("aws", "m5.large", "us-east-1", 0.09)
		require.NoError(t, f.store.Upsert(ctx, []store.InstanceRecord{
			record("aws", "m5.large", "us-east-1", 0.5),
			updated,
		}))

		got, err := f.store.List(ctx, store.InstanceQuery{Provider: "aws", Region: "us-east-1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0.09, got[0].PriceOnDemand)

		count, err := f.store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("get by ids", func(t *testing.T) {
		got, err := f.store.GetByIDs(ctx, []string{"gcp/e2-standard-2/us-central1", "missing"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "e2-standard-2", got[0].InstanceType)

		none, err := f.store.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("regions", func(t *testing.T) {
		got, err := f.store.Regions(ctx, "aws")
		require.NoError(t, err)
		assert.Equal(t, []string{"eu-west-1", "us-east-1"}, got)
	})
}

func TestStore_UpsertInTransaction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	err := duckdb.InTransaction(ctx, f.db, func(ctx context.Context) error {
		if err := f.store.Upsert(ctx, []store.InstanceRecord{record("aws", "t3.micro", "us-east-1", 0.0104)}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_ReplaceProvider(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Upsert(ctx, []store.InstanceRecord{
		record("aws", "m4.large", "us-east-1", 0.1),
		record("aws", "m5.large", "us-east-1", 0.096),
		record("gcp", "e2-standard-2", "us-central1", 0.067),
	}))

	err := duckdb.InTransaction(ctx, f.db, func(ctx context.Context) error {
		return f.store.ReplaceProvider(ctx, "aws", []store.InstanceRecord{
			record("aws", "m5.large", "us-east-1", 0.09),
		})
	})
	require.NoError(t, err)

	aws, err := f.store.List(ctx, store.InstanceQuery{Provider: "aws"})
	require.NoError(t, err)
	require.Len(t, aws, 1, "retired instance types are evicted")
	assert.Equal(t, "m5.large", aws[0].InstanceType)
	assert.InDelta(t, 0.09, aws[0].PriceOnDemand, 1e-9)

	gcp, err := f.store.List(ctx, store.InstanceQuery{Provider: "gcp"})
	require.NoError(t, err)
	assert.Len(t, gcp, 1)
}

func TestStore_SQLErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectPrepare("INSERT OR REPLACE INTO instances").
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	err = s.Upsert(ctx, []store.InstanceRecord{record("aws", "m5.large", "us-east-1", 0.096)})
	assert.ErrorContains(t, err, "disk full")

	mock.ExpectQuery("SELECT (.+) FROM instances WHERE provider = \\?").
		WithArgs("aws").
		WillReturnError(errors.New("connection reset"))
	_, err = s.List(ctx, store.InstanceQuery{Provider: "aws"})
	assert.ErrorContains(t, err, "query instances")

	mock.ExpectExec("DELETE FROM instances WHERE provider = \\?").
		WithArgs("aws").
		WillReturnError(errors.New("database is locked"))
	err = s.ReplaceProvider(ctx, "aws", nil)
	assert.ErrorContains(t, err, "delete aws instances")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("closed"))
	_, err = s.Count(ctx)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabled(t *testing.T) {
	s := Disabled()
	ctx := context.Background()

	assert.False(t, s.Enabled())
	assert.NoError(t, s.Upsert(ctx, []store.InstanceRecord{record("aws", "m5.large", "us-east-1", 1)}))

	got, err := s.List(ctx, store.InstanceQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)

	regions, err := s.Regions(ctx, "aws")
	require.NoError(t, err)
	assert.Empty(t, regions)
}

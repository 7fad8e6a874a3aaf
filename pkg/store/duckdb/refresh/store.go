package refresh

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/store/duckdb"
)

// Store tracks when each provider's cache was last refreshed.
type Store interface {
	List(ctx context.Context) ([]*store.RefreshState, error)
	MarkSucceeded(ctx context.Context, provider string, at time.Time, records int) error
	MarkFailed(ctx context.Context, provider string, at time.Time, cause error) error
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db: db,
	}, nil
}

func (s *defaultStore) List(ctx context.Context) ([]*store.RefreshState, error) {
	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT provider, last_attempt_at, last_refreshed_at, last_error, records_count
		FROM refresh_state
		ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("query refresh state: %w", err)
	}
	defer rows.Close()

	states := make([]*store.RefreshState, 0)
	for rows.Next() {
		var (
			state     store.RefreshState
			refreshed sql.NullTime
			lastErr   sql.NullString
		)
		if err := rows.Scan(&state.Provider, &state.LastAttemptAt, &refreshed, &lastErr, &state.RecordsCount); err != nil {
			return nil, err
		}
		if refreshed.Valid {
			t := refreshed.Time
			state.LastRefreshedAt = &t
		}
		if lastErr.Valid {
			msg := lastErr.String
			state.LastError = &msg
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

func (s *defaultStore) MarkSucceeded(ctx context.Context, provider string, at time.Time, records int) error {
	_, err := duckdb.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO refresh_state (provider, last_attempt_at, last_refreshed_at, last_error, records_count)
		VALUES (?, ?, ?, NULL, ?)
		ON CONFLICT (provider) DO UPDATE SET
			last_attempt_at = excluded.last_attempt_at,
			last_refreshed_at = excluded.last_refreshed_at,
			last_error = NULL,
			records_count = excluded.records_count
	`, provider, at, at, records)
	if err != nil {
		return fmt.Errorf("mark %s refreshed: %w", provider, err)
	}
	return nil
}

// MarkFailed records the failure but keeps the time and size of the last good refresh.
func (s *defaultStore) MarkFailed(ctx context.Context, provider string, at time.Time, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	_, err := duckdb.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO refresh_state (provider, last_attempt_at, last_error)
		VALUES (?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			last_attempt_at = excluded.last_attempt_at,
			last_error = excluded.last_error
	`, provider, at, msg)
	if err != nil {
		return fmt.Errorf("mark %s failed: %w", provider, err)
	}
	return nil
}

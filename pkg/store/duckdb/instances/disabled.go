package instances

import (
	"context"

	"github.com/de-tools/cloudprice/pkg/models/store"
)

type disabled struct{}

// Disabled returns a Store for running without a cache: reads are empty and writes are dropped.
func Disabled() Store {
	return disabled{}
}

func (disabled) Enabled() bool { return false }

func (disabled) Upsert(context.Context, []store.InstanceRecord) error { return nil }

func (disabled) ReplaceProvider(context.Context, string, []store.InstanceRecord) error { return nil }

func (disabled) List(context.Context, store.InstanceQuery) ([]store.InstanceRecord, error) {
	return []store.InstanceRecord{}, nil
}

func (disabled) GetByIDs(context.Context, []string) ([]store.InstanceRecord, error) {
	return []store.InstanceRecord{}, nil
}

func (disabled) Regions(context.Context, string) ([]string, error) { return []string{}, nil }

func (disabled) Count(context.Context) (int64, error) { return 0, nil }

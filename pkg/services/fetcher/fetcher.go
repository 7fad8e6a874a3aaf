package fetcher

import (
	"context"
	"errors"
	"net/url"

	"github.com/de-tools/cloudprice/pkg/models/domain"
)

var (
	ErrNotConfigured      = errors.New("provider is not configured")
	ErrUnexpectedEnvelope = errors.New("unexpected response envelope")
)

// Query narrows what the upstream returns. Empty fields are not sent.
type Query struct {
	PaymentType string // OnDemand
	Region      string // us-east-1
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.PaymentType != "" {
		v.Set("paymentType", q.PaymentType)
	}
	if q.Region != "" {
		v.Set("region", q.Region)
	}
	return v
}

// RawRecord is one provider-native item exactly as the upstream returned it.
type RawRecord struct {
	Provider         domain.Provider
	RegionAggregated bool
	Fields           map[string]any
}

// Result is the outcome of a single provider fetch. Err is set when the provider failed,
// Records may then be empty; a nil Err with no records means the provider had nothing.
type Result struct {
	Provider domain.Provider
	Records  []RawRecord
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Fetcher retrieves the raw catalog of one provider. Implementations never return errors
// past Fetch: failures are reported through Result.Err.
type Fetcher interface {
	Provider() domain.Provider
	Fetch(ctx context.Context, q Query) Result
}

type notConfigured struct {
	provider domain.Provider
}

// NotConfigured returns a fetcher that always fails with ErrNotConfigured.
func NotConfigured(p domain.Provider) Fetcher {
	return notConfigured{provider: p}
}

func (n notConfigured) Provider() domain.Provider {
	return n.provider
}

func (n notConfigured) Fetch(_ context.Context, _ Query) Result {
	return Result{Provider: n.provider, Err: ErrNotConfigured}
}

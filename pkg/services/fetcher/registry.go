package fetcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"golang.org/x/sync/errgroup"
)

// Registry manages the fetcher configured for each provider
type Registry interface {
	// Register adds the fetcher for its provider
	Register(f Fetcher) error
	// Lookup returns the provider's fetcher, or a NotConfigured fetcher when none is registered
	Lookup(p domain.Provider) Fetcher
	// Providers returns the configured providers in stable order
	Providers() []domain.Provider
}

type registry struct {
	mu       sync.RWMutex
	fetchers map[domain.Provider]Fetcher
}

// NewRegistry creates a new fetcher registry
func NewRegistry() Registry {
	return &registry{
		fetchers: make(map[domain.Provider]Fetcher),
	}
}

func (r *registry) Register(f Fetcher) error {
	if f == nil {
		return fmt.Errorf("fetcher cannot be nil")
	}
	p := f.Provider()
	if p == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fetchers[p]; exists {
		return fmt.Errorf("provider %q is already registered", p)
	}

	r.fetchers[p] = f
	return nil
}

func (r *registry) Lookup(p domain.Provider) Fetcher {
	r.mu.RLock()
	f, exists := r.fetchers[p]
	r.mu.RUnlock()

	if !exists {
		return NotConfigured(p)
	}
	return f
}

func (r *registry) Providers() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]domain.Provider, 0, len(r.fetchers))
	for p := range r.fetchers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// FetchAll queries every provider concurrently and waits for all of them. Results are in
// providers order; a failing provider never cancels the others.
func FetchAll(ctx context.Context, reg Registry, providers []domain.Provider, q Query) []Result {
	results := make([]Result, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			results[i] = reg.Lookup(p).Fetch(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Settings configure the upstream pricing API fetchers.
type Settings struct {
	BaseURL     string
	APIKey      string
	AzureSchema AzureSchema
	Timeout     time.Duration
	Retries     int
}

// RegisterUpstream registers upstream API fetchers for the given providers.
func RegisterUpstream(reg Registry, s Settings, providers ...domain.Provider) error {
	client, err := NewClient(ClientConfig{
		BaseURL: s.BaseURL,
		APIKey:  s.APIKey,
		Retries: s.Retries,
	})
	if err != nil {
		return err
	}

	for _, p := range providers {
		var f Fetcher
		switch p {
		case domain.ProviderAWS:
			f = NewAWS(client, s.Timeout)
		case domain.ProviderGCP:
			f = NewGCP(client, s.Timeout)
		case domain.ProviderAzure:
			f, err = NewAzure(client, s.AzureSchema, s.Timeout)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported provider: %s", p)
		}

		if err := reg.Register(f); err != nil {
			return err
		}
	}
	return nil
}

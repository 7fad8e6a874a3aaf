package compare

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/compare"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/query"
)

var categories = map[domain.Category]struct{}{
	domain.CategoryGeneral: {},
	domain.CategoryCompute: {},
	domain.CategoryMemory:  {},
	domain.CategoryStorage: {},
	domain.CategoryGPU:     {},
}

// parseCompareRequest maps the /compare query string onto a pipeline request. Absent
// parameters are left unset; malformed ones are rejected.
func parseCompareRequest(values url.Values) (compare.Request, error) {
	var (
		req compare.Request
		err error
	)

	if req.Providers, err = parseProviders(values.Get("providers")); err != nil {
		return req, err
	}

	f := query.Filter{
		SearchTerm:    strings.TrimSpace(values.Get("searchTerm")),
		InstanceTypes: splitList(values.Get("instanceTypes")),
		Region:        strings.TrimSpace(values.Get("region")),
	}
	bounds := []struct {
		name string
		dst  **float64
	}{
		{"minCpu", &f.MinCPU},
		{"maxCpu", &f.MaxCPU},
		{"minMemory", &f.MinMemory},
		{"maxMemory", &f.MaxMemory},
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
	}
	for _, b := range bounds {
		if *b.dst, err = parseFloat(values, b.name); err != nil {
			return req, err
		}
	}
	if f.GPU, err = parseBool(values, "gpu"); err != nil {
		return req, err
	}
	if f.Category, err = parseCategory(values.Get("category")); err != nil {
		return req, err
	}
	req.Filter = f

	req.SortBy = query.ParseSortKey(values.Get("sortBy"))
	if req.Order, err = query.ParseOrder(values.Get("sortOrder")); err != nil {
		return req, err
	}
	if req.Category, err = domain.ParseSortCategory(values.Get("sortCategory")); err != nil {
		return req, err
	}

	req.Currency = strings.TrimSpace(values.Get("currency"))
	req.Query = fetcher.Query{
		PaymentType: strings.TrimSpace(values.Get("paymentType")),
		Region:      f.Region,
	}

	if req.Page, err = parseInt(values, "page"); err != nil {
		return req, err
	}
	size := values.Get("pageSize")
	if size == "" {
		size = values.Get("limit")
	}
	if size != "" {
		if req.PageSize, err = strconv.Atoi(size); err != nil || req.PageSize < 0 {
			return req, fmt.Errorf("invalid page size %q", size)
		}
	}
	return req, nil
}

func parseProviders(raw string) ([]domain.Provider, error) {
	names := splitList(raw)
	if len(names) == 0 {
		return nil, nil
	}
	providers := make([]domain.Provider, 0, len(names))
	seen := make(map[domain.Provider]struct{}, len(names))
	for _, name := range names {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		providers = append(providers, p)
	}
	return providers, nil
}

func parseCategory(raw string) (domain.Category, error) {
	c := domain.Category(strings.ToLower(strings.TrimSpace(raw)))
	if c == "" {
		return "", nil
	}
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFloat(values url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be a number", name, raw)
	}
	return &v, nil
}

func parseBool(values url.Values, name string) (*bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be true or false", name, raw)
	}
	return &v, nil
}

func parseInt(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, raw)
	}
	return v, nil
}

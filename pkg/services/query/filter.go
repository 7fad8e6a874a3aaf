// Package query filters, sorts and pages normalized instances.
package query

import (
	"strings"

	"github.com/de-tools/cloudprice/pkg/models/domain"
)

// Filter holds the client predicates. Nil and empty fields are not applied.
type Filter struct {
	SearchTerm    string
	MinCPU        *float64
	MaxCPU        *float64
	MinMemory     *float64
	MaxMemory     *float64
	MinPrice      *float64
	MaxPrice      *float64
	GPU           *bool
	InstanceTypes []string // prefix allow-list
	Region        string
	Category      domain.Category
}

// Apply returns the records matching every predicate, in input order.
func (f Filter) Apply(instances []domain.Instance) []domain.Instance {
	out := make([]domain.Instance, 0, len(instances))
	for _, i := range instances {
		if f.Match(i) {
			out = append(out, i)
		}
	}
	return out
}

// Match reports whether i passes the filter. A record with unknown specs (region averages, or
// a zero value) fails any vCPU or memory bound but passes the GPU and type prefix checks.
func (f Filter) Match(i domain.Instance) bool {
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" {
		if !strings.Contains(strings.ToLower(i.InstanceType), term) &&
			!strings.Contains(strings.ToLower(i.Region), term) &&
			!strings.Contains(strings.ToLower(string(i.Provider)), term) {
			return false
		}
	}

	if !inRange(i.VCPUs, !i.RegionAggregated && i.VCPUs > 0, f.MinCPU, f.MaxCPU) {
		return false
	}
	if !inRange(i.MemoryGB, !i.RegionAggregated && i.MemoryGB > 0, f.MinMemory, f.MaxMemory) {
		return false
	}
	if !inRange(i.PriceOnDemand, true, f.MinPrice, f.MaxPrice) {
		return false
	}

	if f.GPU != nil && !i.RegionAggregated && i.GPU != *f.GPU {
		return false
	}

	if len(f.InstanceTypes) > 0 && !i.RegionAggregated && !hasAnyPrefix(i.InstanceType, f.InstanceTypes) {
		return false
	}

	if f.Region != "" && !strings.EqualFold(i.Region, f.Region) {
		return false
	}

	if f.Category != "" && i.Category != f.Category {
		return false
	}

	return true
}

func inRange(v float64, known bool, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	if !known {
		return false
	}
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	s = strings.ToLower(s)
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

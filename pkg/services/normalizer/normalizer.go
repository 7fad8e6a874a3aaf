// Package normalizer maps provider-native records onto domain.Instance.
package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	unknown         = "unknown"
	defaultCurrency = "USD"
	mbPerGB         = 1024
)

var ErrInvalidRecord = errors.New("invalid record")

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/de-tools/cloudprice/instances"))

var skippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cloudprice_normalize_skipped_total",
		Help: "Upstream records dropped because they could not be normalized",
	},
	[]string{"provider"},
)

// InstanceID derives the stable identifier of an offering from its cache key.
func InstanceID(p domain.Provider, instanceType, region string) string {
	return uuid.NewSHA1(idNamespace, []byte(string(p)+"|"+instanceType+"|"+region)).String()
}

type Normalizer struct {
	fields map[domain.Provider]FieldMap
	now    func() time.Time
}

func New() *Normalizer {
	return &Normalizer{
		fields: DefaultFieldMaps,
		now:    time.Now,
	}
}

// Normalize converts a single raw record. Missing fields fall back to zero or "unknown"; a field
// that is present but not a non-negative number is an error.
func (n *Normalizer) Normalize(raw fetcher.RawRecord) (domain.Instance, error) {
	if raw.Provider == "" {
		return domain.Instance{}, fmt.Errorf("%w: missing provider", ErrInvalidRecord)
	}
	fm, ok := n.fields[raw.Provider]
	if !ok {
		return domain.Instance{}, fmt.Errorf("%w: unsupported provider %q", ErrInvalidRecord, raw.Provider)
	}
	r := record(raw.Fields)

	inst := domain.Instance{
		Provider:         raw.Provider,
		InstanceType:     r.str(fm.InstanceType, unknown),
		Family:           r.str(fm.Family, ""),
		Region:           r.str(fm.Region, unknown),
		Architecture:     r.str(fm.Architecture, unknown),
		GPUType:          r.str(fm.GPUType, ""),
		RegionAggregated: raw.RegionAggregated,
		Currency:         defaultCurrency,
		UpdatedAt:        n.now().UTC(),
	}

	var err error
	if inst.VCPUs, err = r.num(fm.VCPUs); err != nil {
		return domain.Instance{}, err
	}
	if inst.MemoryGB, err = r.memoryGB(fm.Memory); err != nil {
		return domain.Instance{}, err
	}
	if inst.StorageGB, err = r.num(fm.Storage); err != nil {
		return domain.Instance{}, err
	}
	if inst.PriceOnDemand, err = r.num(fm.Price); err != nil {
		return domain.Instance{}, err
	}
	if inst.PriceSpot, err = r.num(fm.SpotPrice); err != nil {
		return domain.Instance{}, err
	}
	gpuCount, err := r.num(fm.GPUCount)
	if err != nil {
		return domain.Instance{}, err
	}
	inst.GPUCount = int(gpuCount)
	inst.GPU = inst.GPUCount > 0 || r.flag(fm.GPU)

	if inst.RegionAggregated {
		if inst.InstanceType == unknown {
			inst.InstanceType = domain.PlaceholderInstanceType
		}
		inst.VCPUs = 0
		inst.MemoryGB = 0
		inst.AveragePrice = inst.PriceOnDemand
	}

	inst.ID = r.str(fm.ID, "")
	if inst.ID == "" {
		inst.ID = InstanceID(inst.Provider, inst.InstanceType, inst.Region)
	}
	inst.Category = domain.ClassifyCategory(inst)

	return inst.WithDerivedCosts(), nil
}

// NormalizeAll normalizes a batch, dropping and logging the records that fail.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws []fetcher.RawRecord) []domain.Instance {
	logger := zerolog.Ctx(ctx)
	out := make([]domain.Instance, 0, len(raws))

	for i, raw := range raws {
		inst, err := n.Normalize(raw)
		if err != nil {
			skippedTotal.WithLabelValues(string(raw.Provider)).Inc()
			logger.Warn().
				Err(err).
				Str("provider", string(raw.Provider)).
				Int("index", i).
				Msg("skipping malformed record")
			continue
		}
		out = append(out, inst)
	}
	return out
}

type record map[string]any

func (r record) lookup(keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return k, v, true
		}
	}
	return "", nil, false
}

func (r record) str(keys []string, def string) string {
	_, v, ok := r.lookup(keys)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, int, int32, int64, json.Number:
		return fmt.Sprint(t)
	}
	return def
}

func (r record) flag(keys []string) bool {
	_, v, ok := r.lookup(keys)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	}
	return false
}

func (r record) num(keys []string) (float64, error) {
	key, v, ok := r.lookup(keys)
	if !ok {
		return 0, nil
	}
	return toNumber(key, v)
}

func (r record) memoryGB(keys []MemoryKey) (float64, error) {
	for _, mk := range keys {
		v, ok := r[mk.Key]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		f, err := toNumber(mk.Key, v)
		if err != nil {
			return 0, err
		}
		if mk.InMB {
			return f / mbPerGB, nil
		}
		return f, nil
	}
	return 0, nil
}

func toNumber(key string, v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidRecord, key, t)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidRecord, key, t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidRecord, key, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidRecord, key, f)
	}
	return f, nil
}

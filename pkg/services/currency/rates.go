// Package currency converts USD list prices with a static rate table.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"gopkg.in/ini.v1"
)

const Base = "USD"

// units of currency per 1 USD
var defaultRates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"INR": 83.2,
	"JPY": 149.5,
	"CAD": 1.36,
	"AUD": 1.52,
}

type Rates struct {
	rates map[string]float64
}

func Default() Rates {
	rates := make(map[string]float64, len(defaultRates))
	for code, rate := range defaultRates {
		rates[code] = rate
	}
	return Rates{rates: rates}
}

// LoadRates reads overrides from an INI file on top of the defaults. Keys may live in a
// [rates] section or at the top level:
//
//	[rates]
//	EUR = 0.93
//	CHF = 0.88
func LoadRates(path string) (Rates, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return Rates{}, fmt.Errorf("failed to load currency rates: %w", err)
	}

	for _, section := range []*ini.Section{cfg.Section(ini.DefaultSection), cfg.Section("rates")} {
		for _, key := range section.Keys() {
			rate, err := key.Float64()
			if err != nil || rate <= 0 {
				return Rates{}, fmt.Errorf("invalid rate for %s: %q", key.Name(), key.String())
			}
			r.rates[strings.ToUpper(key.Name())] = rate
		}
	}
	r.rates[Base] = 1
	return r, nil
}

// Resolve normalizes code and returns its rate. Unknown codes resolve to USD.
func (r Rates) Resolve(code string) (string, float64) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if rate, ok := r.rates[code]; ok {
		return code, rate
	}
	return Base, 1
}

func (r Rates) Codes() []string {
	codes := make([]string, 0, len(r.rates))
	for code := range r.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r Rates) Convert(v float64, from, to string) float64 {
	_, fromRate := r.Resolve(from)
	_, toRate := r.Resolve(to)
	return v / fromRate * toRate
}

// Apply converts every price bearing field into code and returns the resolved code. The
// performance score is a ratio and is left alone.
func (r Rates) Apply(instances []domain.Instance, code string) ([]domain.Instance, string) {
	target, _ := r.Resolve(code)
	out := make([]domain.Instance, len(instances))

	for idx, i := range instances {
		from := i.Currency
		if from == "" {
			from = Base
		}
		if from != target {
			conv := func(v float64) float64 { return r.Convert(v, from, target) }
			i.PriceOnDemand = conv(i.PriceOnDemand)
			i.PriceSpot = conv(i.PriceSpot)
			i.CostPerVCPU = conv(i.CostPerVCPU)
			i.CostPerGB = conv(i.CostPerGB)
			i.AveragePrice = conv(i.AveragePrice)
			i.MonthlyCost = conv(i.MonthlyCost)
		}
		i.Currency = target
		out[idx] = i
	}
	return out, target
}

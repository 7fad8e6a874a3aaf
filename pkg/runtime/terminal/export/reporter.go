package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/dustin/go-humanize"
)

type TableConfig struct {
	ProviderWidth int
	TypeWidth     int
	RegionWidth   int
	NumberWidth   int
	PriceWidth    int
	CategoryWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		ProviderWidth: 8,
		TypeWidth:     24,
		RegionWidth:   18,
		NumberWidth:   8,
		PriceWidth:    12,
		CategoryWidth: 10,
	}
}

// Reporter prints a comparison page as a fixed-width table.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Handle(resp *api.CompareResponse) error {
	cfg := c.config
	funcMap := template.FuncMap{
		"header": func() string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*s | %*s | %*s | %*s | %-*s |",
				cfg.ProviderWidth, "Provider",
				cfg.TypeWidth, "Instance",
				cfg.RegionWidth, "Region",
				cfg.NumberWidth, "vCPUs",
				cfg.NumberWidth, "Mem GB",
				cfg.PriceWidth, "On-demand",
				cfg.PriceWidth, "Spot",
				cfg.CategoryWidth, "Category")
		},
		"formatRow": func(i api.Instance) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*s | %*s | %*s | %*s | %-*s |",
				cfg.ProviderWidth, i.Provider,
				cfg.TypeWidth, truncate(i.InstanceType, cfg.TypeWidth),
				cfg.RegionWidth, truncate(i.Region, cfg.RegionWidth),
				cfg.NumberWidth, spec(i.VCPUs, i.IsRegionAggregated),
				cfg.NumberWidth, spec(i.Memory, i.IsRegionAggregated),
				cfg.PriceWidth, price(i.Pricing.OnDemand),
				cfg.PriceWidth, spot(i.Pricing),
				cfg.CategoryWidth, i.Category)
		},
		"separator": func() string {
			widths := []int{cfg.ProviderWidth, cfg.TypeWidth, cfg.RegionWidth, cfg.NumberWidth,
				cfg.NumberWidth, cfg.PriceWidth, cfg.PriceWidth, cfg.CategoryWidth}
			var b strings.Builder
			b.WriteString("+")
			for _, w := range widths {
				b.WriteString(strings.Repeat("-", w+2))
				b.WriteString("+")
			}
			return b.String()
		},
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
	}

	tmpl := `
{{separator}}
{{header}}
{{separator}}
{{range .Data}}{{formatRow .}}
{{end}}{{separator}}
Page {{.Pagination.Page}} of {{.Pagination.Pages}} ({{comma .Pagination.Total}} offerings, prices in {{.Currency}}/hour)
{{range .Sources}}{{if not .OK}}! {{.Provider}}: {{.Reason}}
{{end}}{{end}}`

	t, err := template.New("compare").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, resp)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-1] + "~"
}

func spec(v float64, aggregated bool) string {
	if aggregated || v == 0 {
		return "-"
	}
	return humanize.FtoaWithDigits(v, 2)
}

func price(v float64) string {
	if v == 0 {
		return "-"
	}
	return humanize.FtoaWithDigits(v, 4)
}

func spot(p api.Pricing) string {
	s := price(p.Spot)
	if p.SpotEstimated && p.Spot > 0 {
		s = "~" + s
	}
	return s
}

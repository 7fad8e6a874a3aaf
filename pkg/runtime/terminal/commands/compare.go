package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/runtime/terminal/export"
	"github.com/de-tools/cloudprice/pkg/services/compare"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/query"
	"github.com/spf13/cobra"
)

type CompareCmd struct {
	load     Loader
	reporter *export.Reporter
	status   io.Writer
	timeout  time.Duration

	providers     []string
	minCPU        float64
	maxCPU        float64
	minMemory     float64
	maxMemory     float64
	maxPrice      float64
	gpu           bool
	region        string
	searchTerm    string
	instanceTypes []string
	sortBy        string
	sortOrder     string
	sortCategory  string
	currency      string
	page          int
	pageSize      int
}

func NewCompareCmd(load Loader, reporter *export.Reporter, status io.Writer) *cobra.Command {
	cc := &CompareCmd{load: load, reporter: reporter, status: status}
	if cc.status == nil {
		cc.status = os.Stderr
	}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare VM prices across providers",
		RunE:  cc.run,
	}

	cmd.Flags().StringSliceVar(&cc.providers, "providers", nil, "Providers to compare (aws, azure, gcp); all when empty")
	cmd.Flags().Float64Var(&cc.minCPU, "min-cpu", 0, "Minimum vCPUs")
	cmd.Flags().Float64Var(&cc.maxCPU, "max-cpu", 0, "Maximum vCPUs")
	cmd.Flags().Float64Var(&cc.minMemory, "min-memory", 0, "Minimum memory in GB")
	cmd.Flags().Float64Var(&cc.maxMemory, "max-memory", 0, "Maximum memory in GB")
	cmd.Flags().Float64Var(&cc.maxPrice, "max-price", 0, "Maximum on-demand price per hour")
	cmd.Flags().BoolVar(&cc.gpu, "gpu", false, "Only GPU instances (--gpu=false excludes them)")
	cmd.Flags().StringVar(&cc.region, "region", "", "Provider region")
	cmd.Flags().StringVar(&cc.searchTerm, "search", "", "Substring of the instance type, family or region")
	cmd.Flags().StringSliceVar(&cc.instanceTypes, "instance-types", nil, "Instance type prefixes, e.g. m5,c5")
	cmd.Flags().StringVar(&cc.sortBy, "sort-by", string(query.SortByPrice), "Sort field")
	cmd.Flags().StringVar(&cc.sortOrder, "sort-order", string(query.Asc), "asc or desc")
	cmd.Flags().StringVar(&cc.sortCategory, "sort-category", string(domain.SortCategoryInstancePricing),
		"instancePricing, regionPricing, spotPrice or pricePerPerformance")
	cmd.Flags().StringVar(&cc.currency, "currency", "USD", "Display currency")
	cmd.Flags().IntVar(&cc.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&cc.pageSize, "page-size", query.DefaultPageSize, "Rows per page")
	cmd.Flags().DurationVar(&cc.timeout, "timeout", 60*time.Second, "Overall timeout")

	return cmd
}

func (cc *CompareCmd) request(cmd *cobra.Command) (compare.Request, error) {
	var (
		req compare.Request
		err error
	)
	for _, name := range cc.providers {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return req, err
		}
		req.Providers = append(req.Providers, p)
	}

	flags := cmd.Flags()
	bound := func(name string, v float64) *float64 {
		if !flags.Changed(name) {
			return nil
		}
		return &v
	}
	req.Filter = query.Filter{
		SearchTerm:    cc.searchTerm,
		MinCPU:        bound("min-cpu", cc.minCPU),
		MaxCPU:        bound("max-cpu", cc.maxCPU),
		MinMemory:     bound("min-memory", cc.minMemory),
		MaxMemory:     bound("max-memory", cc.maxMemory),
		MaxPrice:      bound("max-price", cc.maxPrice),
		InstanceTypes: cc.instanceTypes,
		Region:        strings.TrimSpace(cc.region),
	}
	if flags.Changed("gpu") {
		gpu := cc.gpu
		req.Filter.GPU = &gpu
	}

	req.SortBy = query.ParseSortKey(cc.sortBy)
	if req.Order, err = query.ParseOrder(cc.sortOrder); err != nil {
		return req, err
	}
	if req.Category, err = domain.ParseSortCategory(cc.sortCategory); err != nil {
		return req, err
	}
	req.Query = fetcher.Query{Region: req.Filter.Region}
	req.Currency = cc.currency
	req.Page = cc.page
	req.PageSize = cc.pageSize
	return req, nil
}

func (cc *CompareCmd) run(cmd *cobra.Command, _ []string) error {
	req, err := cc.request(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, cc.timeout)
	defer cancel()

	a, err := cc.load(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = a.Logger.WithContext(ctx)

	sp := startSpinner(cc.status, "Fetching prices ...")
	result, err := a.Compare.Compare(ctx, req)
	sp.Stop()
	if err != nil {
		return fmt.Errorf("failed to compare prices: %w", err)
	}

	resp := &api.CompareResponse{
		Status: api.StatusSuccess,
		Data:   adapters.MapDomainInstancesToApi(result.Data),
		Pagination: api.Pagination{
			Total:    result.Total,
			Page:     result.Page,
			Pages:    result.TotalPages,
			PageSize: result.PageSize,
		},
		Currency: result.Currency,
	}
	for _, s := range result.Sources {
		status := api.SourceStatus{Provider: string(s.Provider), OK: s.OK(), Records: s.Records}
		if !s.OK() {
			status.Reason = s.Err.Error()
		}
		resp.Sources = append(resp.Sources, status)
	}
	return cc.reporter.Handle(resp)
}

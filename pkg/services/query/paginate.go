package query

import "github.com/de-tools/cloudprice/pkg/models/domain"

const DefaultPageSize = 20

type Page struct {
	Data       []domain.Instance
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Paginate slices one page out of instances. Pages are 1-based; a page past the end is empty.
func Paginate(instances []domain.Instance, page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}

	total := len(instances)
	p := Page{
		Data:       []domain.Instance{},
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}

	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := start + size
	if end > total {
		end = total
	}
	p.Data = instances[start:end]
	return p
}

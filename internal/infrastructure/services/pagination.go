package services

import (
	"math"
	"strconv"
)

// Page is one slice of a listing in the admin API envelope.
type Page[T any] struct {
	Data        []T  `json:"data"`
	Page        int  `json:"page"`
	Size        int  `json:"size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// PageParams controls how query parameters select a page. Offset/limit
// parameters take precedence over page/size ones.
type PageParams struct {
	DefaultSize int
	MaxSize     int
}

// Paginate slices items according to the page, size, offset and limit
// query parameters.
func Paginate[T any](items []T, p PageParams, query map[string]string) Page[T] {
	offset, limit := resolveSliceBounds(p, query)

	total := len(items)
	offset = min(offset, total)
	end := min(offset+limit, total)

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages == 0 {
		totalPages = 1
	}

	data := items[offset:end]
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:        data,
		Page:        (offset / limit) + 1,
		Size:        limit,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     end < total,
		HasPrevious: offset > 0,
	}
}

func resolveSliceBounds(p PageParams, qp map[string]string) (offset, limit int) {
	limit = p.DefaultSize

	if _, ok := qp["offset"]; ok || qp["limit"] != "" {
		if n, err := strconv.Atoi(qp["offset"]); err == nil && n >= 0 {
			offset = n
		}
		if n, err := strconv.Atoi(qp["limit"]); err == nil && n > 0 {
			limit = n
		}
	} else {
		page := 1
		if n, err := strconv.Atoi(qp["page"]); err == nil && n >= 1 {
			page = n
		}
		if n, err := strconv.Atoi(qp["size"]); err == nil && n > 0 {
			limit = n
		}
		if limit <= 0 {
			limit = 10
		}
		offset = (page - 1) * limit
	}

	if p.MaxSize > 0 && limit > p.MaxSize {
		limit = p.MaxSize
	}
	if limit <= 0 {
		limit = 10
	}
	return offset, limit
}

package proposals

// DefaultPageSize is the number of proposal cards per listing page.
const DefaultPageSize = 12

type Page[T any] struct {
	Items      []T `json:"items"`
	Number     int `json:"page"`
	Size       int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalCount int `json:"total_count"`
}

// Paginate slices items into the requested page. A page past the last one is
// empty rather than an error; only numbers below 1 are rejected.
func Paginate[T any](items []T, size, number int) (Page[T], error) {
	if number < 1 {
		return Page[T]{}, &OutOfRangeError{Page: number}
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(items)
	page := Page[T]{
		Items:      []T{},
		Number:     number,
		Size:       size,
		TotalPages: (total + size - 1) / size,
		TotalCount: total,
	}

	start := (number - 1) * size
	if start >= total {
		return page, nil
	}
	end := min(start+size, total)
	page.Items = items[start:end:end]
	return page, nil
}

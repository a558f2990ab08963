package listview

const (
	// DefaultPageSize is used when a view carries no page size.
	DefaultPageSize = 25
	// MaxPageSize caps page sizes accepted from clients.
	MaxPageSize = 500
	// DefaultWindow is the width of the visible page-number window.
	DefaultWindow = 5
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// TotalPages returns ceil(total/size), never less than 1.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := (total + size - 1) / size
	if n < 1 {
		return 1
	}
	return n
}

// ClampPage bounds page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the window [(page-1)*size, (page-1)*size+size) of items
// after clamping page, together with its metadata.
func Paginate[T any](items []T, page, size int) ([]T, Pagination) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := TotalPages(total, size)
	page = ClampPage(page, pages)

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return items[start:end], Pagination{
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// PageWindow returns up to width consecutive page numbers around current,
// shifted toward the available end when current sits near a boundary. It
// only drives page-number buttons and never affects the slice.
func PageWindow(current, totalPages, width int) []int {
	if width <= 0 {
		width = DefaultWindow
	}
	if totalPages < 1 {
		totalPages = 1
	}
	current = ClampPage(current, totalPages)
	if width > totalPages {
		width = totalPages
	}

	start := current - width/2
	if start < 1 {
		start = 1
	}
	end := start + width - 1
	if end > totalPages {
		end = totalPages
		start = end - width + 1
	}

	out := make([]int, 0, width)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out
}

// Package listutil turns ?page= and ?per_page= into LIMIT/OFFSET values and
// the numbers a pager needs.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
)

// DefaultPerPage applies when per_page is missing or not one of PerPageOptions.
const DefaultPerPage = 15

// PerPageOptions are the page sizes the records page offers.
var PerPageOptions = []int{15, 30, 50, 100}

// pagerWidth is how many page links the pager shows at once.
const pagerWidth = 5

// PageParams is the page a request asked for.
type PageParams struct {
	Page    int
	PerPage int
}

// ParsePageParams reads page and per_page, falling back to page 1 and DefaultPerPage.
func ParsePageParams(q url.Values) PageParams {
	p := PageParams{Page: 1, PerPage: DefaultPerPage}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && slices.Contains(PerPageOptions, n) {
		p.PerPage = n
	}
	return p
}

// PageInfo is one page of a result of Total rows. Page numbers start at 1.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// Paginate resolves p against the row count. A page past the end becomes the
// last page, and an empty result still has one page.
func Paginate(p PageParams, total int) PageInfo {
	return NewPageInfo(p.Page, p.PerPage, total)
}

// NewPageInfo is Paginate with the parameters spelled out. perPage < 1 means DefaultPerPage.
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max(1, (total+perPage-1)/perPage)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the number of rows before this page.
func (p PageInfo) Offset() int { return (p.Page - 1) * p.PerPage }

// StartRow is the 1-based number of the first row shown, or 0 for no rows.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow is the 1-based number of the last row shown.
func (p PageInfo) EndRow() int { return min(p.Offset()+p.PerPage, p.Total) }

// PageNumbers lists the pager links: a window around Page, shifted to stay
// inside 1..TotalPages.
func (p PageInfo) PageNumbers() []int {
	first := max(1, min(p.Page-pagerWidth/2, p.TotalPages-pagerWidth+1))
	last := min(p.TotalPages, first+pagerWidth-1)
	nums := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		nums = append(nums, n)
	}
	return nums
}

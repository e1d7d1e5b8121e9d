// Package pagination computes stable page windows over counted collections
// and builds the navigation links returned by list endpoints.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

// DefaultPageSize is used when a caller supplies no explicit page size.
const DefaultPageSize = 10

// Page describes one resolved page window.
type Page struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	PageSize   int `json:"page_size"`
	Count      int `json:"count"`
	Offset     int `json:"-"`
}

// Compute resolves a requested page number against the collection size.
// Out-of-range requests are clamped, never rejected: a page beyond the end
// resolves to the last page, anything below 1 resolves to the first. An
// empty collection yields page 1 with an empty window and TotalPages 0.
func Compute(totalCount, requestedPage, pageSize int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if totalCount < 0 {
		totalCount = 0
	}

	totalPages := (totalCount + pageSize - 1) / pageSize

	page := requestedPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	return Page{
		Page:       page,
		TotalPages: totalPages,
		PageSize:   pageSize,
		Count:      totalCount,
		Offset:     (page - 1) * pageSize,
	}
}

// Window returns the LIMIT/OFFSET pair for the resolved page.
func (p Page) Window() (limit, offset int) {
	return p.PageSize, p.Offset
}

// Links builds the HATEOAS navigation map for the resolved page. Forward
// links appear only when pages remain ahead, backward links only past page
// one. Query parameters other than "page" (active filters) are preserved.
func Links(p Page, basePath string, query url.Values) map[string]string {
	links := make(map[string]string)
	if p.Page < p.TotalPages {
		links["nextPage"] = pageURL(basePath, query, p.Page+1)
		links["lastPage"] = pageURL(basePath, query, p.TotalPages)
	}
	if p.Page > 1 {
		links["prevPage"] = pageURL(basePath, query, p.Page-1)
		links["firstPage"] = pageURL(basePath, query, 1)
	}
	return links
}

func pageURL(basePath string, query url.Values, page int) string {
	q := url.Values{}
	for key, vals := range query {
		if key == "page" {
			continue
		}
		for _, v := range vals {
			q.Add(key, v)
		}
	}
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s?%s", basePath, q.Encode())
}

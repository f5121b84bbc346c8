// Package pagination resolves page parameters and builds list metadata.
package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Limits bounds the page size accepted from clients
type Limits struct {
	DefaultItems int
	MaxItems     int
}

// DefaultLimits applies when no configuration is given
var DefaultLimits = Limits{DefaultItems: 20, MaxItems: 100}

// MaxPage is the largest page number a request resolves to
const MaxPage = math.MaxInt32

// Page is a resolved, always valid page request
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows before the page. It saturates at math.MaxInt, which lies
// past the end of any table.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Resolve parses the page and items query values. Missing or invalid values fall back
// to page 1 and the default size; sizes above the maximum and page numbers above MaxPage
// are clamped.
func (l Limits) Resolve(pageParam, itemsParam string) Page {
	if l.DefaultItems <= 0 {
		l = DefaultLimits
	}
	page := Page{Number: 1, Size: l.DefaultItems}

	if n, err := strconv.Atoi(strings.TrimSpace(pageParam)); err == nil && n > 0 {
		page.Number = min(n, MaxPage)
	} else if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(pageParam), "-") {
		page.Number = MaxPage
	}
	if n, err := strconv.Atoi(strings.TrimSpace(itemsParam)); err == nil && n > 0 {
		page.Size = n
	}
	if l.MaxItems > 0 && page.Size > l.MaxItems {
		page.Size = l.MaxItems
	}
	return page
}

// Meta describes a page of a list
type Meta struct {
	Count int64 `json:"count"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Next  *int  `json:"next"`
	Prev  *int  `json:"prev"`
}

// NewMeta computes the metadata of page over count matching rows
func NewMeta(count int64, page Page) Meta {
	pages := int((count + int64(page.Size) - 1) / int64(page.Size))
	meta := Meta{Count: count, Page: page.Number, Pages: pages}
	if page.Number < pages {
		next := page.Number + 1
		meta.Next = &next
	}
	if page.Number > 1 {
		prev := page.Number - 1
		meta.Prev = &prev
	}
	return meta
}

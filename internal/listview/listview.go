// Package listview computes what a public list shows: the search and facet
// filtered subset of a fetched collection and one page of it. Everything is
// recomputed from the full list on every call.
package listview

import (
	"sort"
	"strings"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 6

// Query is the user-controlled input of a list view.
type Query struct {
	Search   string
	Facet    string
	Page     int
	PageSize int
}

// Accessors tell the view which text is searchable and which facet values
// an item carries.
type Accessors[T any] struct {
	Text   func(T) []string
	Facets func(T) []string
}

// Result is one rendered state of a list view.
type Result[T any] struct {
	Items      []T
	Facets     []string
	Query      Query
	Page       int
	TotalPages int
	TotalItems int
	Pages      []int
}

func (r Result[T]) HasPrev() bool { return r.Page > 1 }
func (r Result[T]) HasNext() bool { return r.Page < r.TotalPages }
func (r Result[T]) PrevPage() int { return r.Page - 1 }
func (r Result[T]) NextPage() int { return r.Page + 1 }

// Apply filters, then paginates. Facets are taken from the full list so the
// facet control keeps its size while the user filters.
func Apply[T any](items []T, q Query, acc Accessors[T]) Result[T] {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	filtered := Filter(items, q.Search, q.Facet, acc)
	page, totalPages := Clamp(q.Page, len(filtered), q.PageSize)

	return Result[T]{
		Items:      Paginate(filtered, page, q.PageSize),
		Facets:     Facets(items, acc.Facets),
		Query:      q,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(filtered),
		Pages:      pageNumbers(totalPages),
	}
}

// Filter keeps items whose text contains search (case-insensitive) and that
// carry facet exactly. Empty search or facet matches everything.
func Filter[T any](items []T, search, facet string, acc Accessors[T]) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesText(acc.Text(item), needle) {
			continue
		}
		if facet != "" && !hasFacet(acc.Facets(item), facet) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesText(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func hasFacet(values []string, facet string) bool {
	for _, v := range values {
		if v == facet {
			return true
		}
	}
	return false
}

// Facets returns the sorted distinct facet values of items. Values are
// compared literally: "Go" and "go " are different facets.
func Facets[T any](items []T, facets func(T) []string) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, v := range facets(item) {
			if v == "" {
				continue
			}
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clamp maps a requested page into [1, totalPages]. An empty list still has
// page 1.
func Clamp(page, total, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		return 1, 0
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}

// Paginate returns page (1-based, already clamped) of items.
func Paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func pageNumbers(totalPages int) []int {
	pages := make([]int, totalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

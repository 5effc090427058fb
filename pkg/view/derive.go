package view

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matst80/slask-docs/pkg/types"
)

// DeriveOptions carries the configured display columns and page size. Zero
// values fall back to the defaults (Title, Description, page size 10).
type DeriveOptions struct {
	TitleColumn       string
	DescriptionColumn string
	PageSize          int
}

func (o DeriveOptions) pageSize() int {
	if o.PageSize <= 0 {
		return types.DefaultPageSize
	}
	return o.PageSize
}

// FromListing maps the operator settings to derive options.
func FromListing(l types.ListingSettings) DeriveOptions {
	return DeriveOptions{
		TitleColumn:       l.TitleColumn,
		DescriptionColumn: l.DescriptionColumn,
		PageSize:          l.PageSize,
	}
}

// Derive computes the visible page for a query: facet filter, search filter,
// stable sort, page clamp, slice. Pure with respect to its inputs, calling it
// twice with the same arguments yields the same result and the input slice is
// never mutated.
func Derive(items []types.DocumentItem, q types.ViewQuery, opts DeriveOptions) types.PageResult {
	matched := filter(items, q, opts)
	sortItems(matched, q, opts)

	pageSize := opts.pageSize()
	total := len(matched)
	pageCount := (total + pageSize - 1) / pageSize
	if pageCount < 1 {
		// zero matches still render as a single empty page
		pageCount = 1
	}

	page := q.Page
	if page > pageCount {
		page = pageCount
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return types.PageResult{
		Items:        matched[start:end],
		Page:         page,
		PageCount:    pageCount,
		TotalMatches: total,
	}
}

func filter(items []types.DocumentItem, q types.ViewQuery, opts DeriveOptions) []types.DocumentItem {
	term := strings.ToLower(q.SearchTerm)
	matched := make([]types.DocumentItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.Category != q.Category || item.SubCategory != q.SubCategory {
			continue
		}
		if term != "" {
			title := strings.ToLower(item.DisplayTitle(opts.TitleColumn))
			desc := strings.ToLower(item.DisplayDescription(opts.DescriptionColumn))
			if !strings.Contains(title, term) && !strings.Contains(desc, term) {
				continue
			}
		}
		matched = append(matched, *item)
	}
	return matched
}

func sortItems(items []types.DocumentItem, q types.ViewQuery, opts DeriveOptions) {
	column := q.SortColumn
	if column == "" {
		column = types.DefaultSortColumn
	}
	desc := q.SortDir == types.SortDesc

	sort.SliceStable(items, func(i, j int) bool {
		c := compare(&items[i], &items[j], column)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compare orders two items on a column. Modified compares as time, values
// that both parse as numbers compare numerically, everything else compares as
// case-insensitive strings.
func compare(a, b *types.DocumentItem, column string) int {
	if column == "Modified" {
		return a.Modified.Compare(b.Modified)
	}
	va := a.Field(column)
	vb := b.Field(column)
	if na, err := strconv.ParseFloat(va, 64); err == nil {
		if nb, err := strconv.ParseFloat(vb, 64); err == nil {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(va), strings.ToLower(vb))
}

package types

import (
	"net/http"
	"net/url"

	"github.com/gorilla/schema"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultSortColumn = "Modified"
	DefaultPageSize   = 10
	MinPageSize       = 5
	MaxPageSize       = 100
)

// ViewQuery describes what the listing should show: active facet selection,
// search term, sort and page. It is a value, mutations produce a new query.
type ViewQuery struct {
	Category    string `json:"category" schema:"cat"`
	SubCategory string `json:"subCategory" schema:"sub"`
	SearchTerm  string `json:"query" schema:"query"`
	SortColumn  string `json:"sort" schema:"sort"`
	SortDir     string `json:"dir" schema:"dir"`
	Page        int    `json:"page" schema:"page"`
}

// PageResult is one derived page of the listing.
type PageResult struct {
	Items        []DocumentItem `json:"items"`
	Page         int            `json:"page"`
	PageCount    int            `json:"pageCount"`
	TotalMatches int            `json:"totalMatches"`
}

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// DefaultQuery is the state after a reload: newest documents first, page 1,
// no search term.
func DefaultQuery() ViewQuery {
	return ViewQuery{
		SortColumn: DefaultSortColumn,
		SortDir:    SortDesc,
		Page:       1,
	}
}

func (q *ViewQuery) Sanitize() {
	if q.SortColumn == "" {
		q.SortColumn = DefaultSortColumn
		if q.SortDir == "" {
			q.SortDir = SortDesc
		}
	}
	if q.SortDir != SortAsc && q.SortDir != SortDesc {
		q.SortDir = SortAsc
	}
	if q.Page < 1 {
		q.Page = 1
	}
}

// ToggleSort returns the query after a header click: same column flips the
// direction, a new column starts ascending. The page is kept, sorting does
// not change the result set size.
func (q ViewQuery) ToggleSort(column string) ViewQuery {
	if q.SortColumn == column {
		if q.SortDir == SortAsc {
			q.SortDir = SortDesc
		} else {
			q.SortDir = SortAsc
		}
	} else {
		q.SortColumn = column
		q.SortDir = SortAsc
	}
	return q
}

// QueryFromRequest decodes a ViewQuery from the URL on GET requests and from
// the JSON body otherwise.
func QueryFromRequest(r *http.Request) (ViewQuery, error) {
	q := DefaultQuery()
	var err error
	if r.Method == http.MethodGet {
		err = queryFromValues(r.URL.Query(), &q)
	} else {
		err = jsoncompat.Decode(r.Body, &q)
	}
	q.Sanitize()
	return q, err
}

func queryFromValues(values url.Values, q *ViewQuery) error {
	return decoder.Decode(q, values)
}

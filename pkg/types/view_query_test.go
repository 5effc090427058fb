package types

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultQuery(t *testing.T) {
	q := DefaultQuery()
	if q.SortColumn != "Modified" || q.SortDir != SortDesc || q.Page != 1 {
		t.Errorf("unexpected defaults: %+v", q)
	}
}

func TestToggleSortSameColumnFlips(t *testing.T) {
	q := DefaultQuery()
	q.Page = 3

	q = q.ToggleSort("Modified")
	if q.SortDir != SortAsc {
		t.Errorf("expected flip to asc, got %s", q.SortDir)
	}
	q = q.ToggleSort("Modified")
	if q.SortDir != SortDesc {
		t.Errorf("expected flip back to desc, got %s", q.SortDir)
	}
	if q.Page != 3 {
		t.Errorf("sorting must keep the page, got %d", q.Page)
	}
}

func TestToggleSortNewColumnStartsAscending(t *testing.T) {
	q := DefaultQuery()
	q = q.ToggleSort("Title")
	if q.SortColumn != "Title" || q.SortDir != SortAsc {
		t.Errorf("new column should start ascending: %+v", q)
	}
}

func TestSanitize(t *testing.T) {
	q := ViewQuery{SortDir: "sideways", Page: -4}
	q.Sanitize()
	if q.SortColumn != DefaultSortColumn {
		t.Errorf("empty sort column not defaulted: %s", q.SortColumn)
	}
	if q.SortDir != SortAsc {
		t.Errorf("invalid direction should fall back to asc, got %s", q.SortDir)
	}
	if q.Page != 1 {
		t.Errorf("page should clamp to 1, got %d", q.Page)
	}
}

func TestQueryFromRequestGet(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/view?cat=Policies&sub=HR&query=report&sort=Title&dir=asc&page=2", nil)
	q, err := QueryFromRequest(r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if q.Category != "Policies" || q.SubCategory != "HR" || q.SearchTerm != "report" {
		t.Errorf("facet/search decode wrong: %+v", q)
	}
	if q.SortColumn != "Title" || q.SortDir != SortAsc || q.Page != 2 {
		t.Errorf("sort/page decode wrong: %+v", q)
	}
}

func TestQueryFromRequestIgnoresUnknownKeys(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/view?cat=A&bogus=1", nil)
	q, err := QueryFromRequest(r)
	if err != nil {
		t.Fatalf("unknown keys must be ignored: %v", err)
	}
	if q.Category != "A" {
		t.Errorf("known key lost: %+v", q)
	}
}

func TestQueryFromRequestBody(t *testing.T) {
	body := `{"category":"Guides","subCategory":"IT","page":5}`
	r := httptest.NewRequest("POST", "/api/view", strings.NewReader(body))
	q, err := QueryFromRequest(r)
	if err != nil {
		t.Fatalf("body decode failed: %v", err)
	}
	if q.Category != "Guides" || q.SubCategory != "IT" || q.Page != 5 {
		t.Errorf("body decode wrong: %+v", q)
	}
}

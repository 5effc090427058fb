package controller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/matst80/slask-docs/pkg/store"
	"github.com/matst80/slask-docs/pkg/types"
)

type fakeSource struct {
	items      []types.DocumentItem
	catChoices []string
	subChoices []string
	fetchErr   error
	// when set, FetchChoices for the sub-category column blocks until the
	// channel closes
	choiceGate chan struct{}
}

func (f *fakeSource) FetchItems(_ context.Context, library, categoryColumn, subCategoryColumn string, _ []string) ([]types.DocumentItem, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

func (f *fakeSource) FetchChoices(_ context.Context, library, column string) ([]string, error) {
	if column == "Cat" {
		return f.catChoices, nil
	}
	if f.choiceGate != nil {
		<-f.choiceGate
	}
	return f.subChoices, nil
}

func testSettings() *types.Settings {
	s := &types.Settings{}
	s.Listing = types.ListingSettings{
		Library:           "Documents",
		CategoryColumn:    "Cat",
		SubCategoryColumn: "Sub",
		PageSize:          5,
	}
	return s
}

func testItems() []types.DocumentItem {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []types.DocumentItem{}
	for i := 0; i < 7; i++ {
		items = append(items, types.DocumentItem{
			Id:          fmt.Sprintf("p%d", i),
			Title:       fmt.Sprintf("Policy %d", i),
			Category:    "Policies",
			SubCategory: "HR",
			Modified:    base.Add(time.Duration(i) * time.Hour),
		})
	}
	items = append(items, types.DocumentItem{
		Id: "g0", Title: "Guide 0", Category: "Guides", SubCategory: "IT", Modified: base,
	})
	return items
}

func newLoaded(t *testing.T, src *fakeSource) *Controller {
	t.Helper()
	c := New(store.NewItemStore(), src, testSettings(), nil)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	return c
}

func TestReloadSelectsFirstFacets(t *testing.T) {
	src := &fakeSource{
		items:      testItems(),
		catChoices: []string{"Guides", "Policies"},
		subChoices: []string{"IT", "HR"},
	}
	c := newLoaded(t, src)

	v := c.Snapshot()
	if v.Query.Category != "Guides" || v.Query.SubCategory != "IT" {
		t.Errorf("expected first choices selected, got %+v", v.Query)
	}
	if v.Query.Page != 1 || v.Query.SortColumn != "Modified" || v.Query.SortDir != types.SortDesc {
		t.Errorf("reload must reset query to defaults: %+v", v.Query)
	}
}

func TestReloadInfersFacetsWithoutChoices(t *testing.T) {
	src := &fakeSource{items: testItems()}
	c := newLoaded(t, src)

	v := c.Snapshot()
	// inferred, locale ordered: Guides before Policies
	if len(v.Categories) != 2 || v.Categories[0] != "Guides" {
		t.Errorf("inferred categories wrong: %v", v.Categories)
	}
	if v.Query.Category != "Guides" || v.Query.SubCategory != "IT" {
		t.Errorf("first inferred facet not selected: %+v", v.Query)
	}
}

func TestReloadErrorLeavesStateUntouched(t *testing.T) {
	src := &fakeSource{items: testItems()}
	c := newLoaded(t, src)
	before := c.Snapshot()

	src.fetchErr = fmt.Errorf("site unreachable")
	if err := c.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	after := c.Snapshot()
	if len(after.Page.Items) != len(before.Page.Items) {
		t.Error("failed reload must not clear the current view")
	}
}

func TestSetCategoryResetsSubAndPage(t *testing.T) {
	src := &fakeSource{items: testItems()}
	c := newLoaded(t, src)

	c.SetCategory(context.Background(), "Policies")
	v := c.Snapshot()
	if v.Query.Category != "Policies" || v.Query.SubCategory != "HR" {
		t.Errorf("first sub-category not auto-selected: %+v", v.Query)
	}
	if v.Query.Page != 1 {
		t.Errorf("category gesture must reset the page, got %d", v.Query.Page)
	}

	c.NextPage()
	c.SetCategory(context.Background(), "Guides")
	if got := c.Query().Page; got != 1 {
		t.Errorf("page not reset on category change, got %d", got)
	}
}

func TestSearchAndSubCategoryResetPageSortKeepsIt(t *testing.T) {
	src := &fakeSource{items: testItems()}
	c := newLoaded(t, src)
	c.SetCategory(context.Background(), "Policies")
	c.NextPage()
	if c.Query().Page != 2 {
		t.Fatalf("setup failed, page=%d", c.Query().Page)
	}

	c.ToggleSort("Title")
	if c.Query().Page != 2 {
		t.Errorf("sort must keep the page, got %d", c.Query().Page)
	}

	c.SetSearch("policy")
	if c.Query().Page != 1 {
		t.Errorf("search must reset the page, got %d", c.Query().Page)
	}

	c.NextPage()
	c.SetSubCategory("HR")
	if c.Query().Page != 1 {
		t.Errorf("sub-category must reset the page, got %d", c.Query().Page)
	}
}

func TestPagingStopsAtBounds(t *testing.T) {
	src := &fakeSource{items: testItems()}
	c := newLoaded(t, src)
	c.SetCategory(context.Background(), "Policies")

	// 7 items, page size 5 -> 2 pages
	c.PrevPage()
	if c.Query().Page != 1 {
		t.Errorf("prev on first page must be a no-op, got %d", c.Query().Page)
	}
	c.NextPage()
	c.NextPage()
	if c.Query().Page != 2 {
		t.Errorf("next on last page must be a no-op, got %d", c.Query().Page)
	}
}

func TestStaleChoiceRefreshDiscarded(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{
		items:      testItems(),
		subChoices: []string{"Finance"},
		choiceGate: gate,
	}
	c := New(store.NewItemStore(), src, testSettings(), nil)
	src.choiceGate = nil
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	src.choiceGate = gate

	// the slow refresh from this gesture is still in flight...
	c.SetCategory(context.Background(), "Policies")
	// ...when a newer gesture advances the state
	c.SetCategory(context.Background(), "Guides")
	c.SetSubCategory("IT")

	close(gate)
	// give both refresh goroutines time to observe their stale tokens
	deadline := time.After(time.Second)
	for {
		if c.Query().SubCategory == "IT" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("stale refresh overwrote the selection: %+v", c.Query())
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	if got := c.Query().SubCategory; got != "IT" {
		t.Errorf("stale refresh applied, sub-category=%s", got)
	}
}

type recordingRenderer struct {
	pages  int
	errors int
	last   View
}

func (r *recordingRenderer) RenderPage(v View) { r.pages++; r.last = v }
func (r *recordingRenderer) RenderError(error) { r.errors++ }

func TestRendererSeesEveryTransition(t *testing.T) {
	src := &fakeSource{items: testItems()}
	r := &recordingRenderer{}
	c := New(store.NewItemStore(), src, testSettings(), r)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	c.SetCategory(context.Background(), "Policies")
	c.SetSearch("policy 1")
	if r.pages != 3 {
		t.Errorf("expected 3 render passes, got %d", r.pages)
	}
	if len(r.last.Categories) == 0 {
		t.Error("render pass delivered no facet lists")
	}

	src.fetchErr = fmt.Errorf("down")
	_ = c.Reload(context.Background())
	if r.errors != 1 {
		t.Errorf("expected error render, got %d", r.errors)
	}
}

package controller

import (
	"context"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/matst80/slask-docs/pkg/facet"
	"github.com/matst80/slask-docs/pkg/source"
	"github.com/matst80/slask-docs/pkg/store"
	"github.com/matst80/slask-docs/pkg/types"
	"github.com/matst80/slask-docs/pkg/view"
)

// View is the render-ready descriptor handed to the rendering boundary after
// every state transition: facet lists first, then the derived page.
type View struct {
	Categories    []string         `json:"categories"`
	SubCategories []string         `json:"subCategories"`
	Query         types.ViewQuery  `json:"query"`
	Page          types.PageResult `json:"page"`
}

// Renderer is the boundary that turns a View into markup. It re-attaches its
// gesture handlers to freshly created elements after each render, the
// controller only exposes idempotent mutation entry points and knows nothing
// about element lifecycles.
type Renderer interface {
	RenderPage(v View)
	RenderError(err error)
}

// Controller binds user gestures to ViewQuery mutations and re-derives the
// visible page. All mutations are serialized; async fetch completions carry a
// generation token and are discarded when a newer gesture or reload has
// already advanced the state.
type Controller struct {
	mu       sync.Mutex
	store    *store.ItemStore
	src      source.DocumentSource
	settings *types.Settings
	renderer Renderer

	set   *facet.Set
	query types.ViewQuery
	last  View

	// bumped by Reload and by every facet gesture; in-flight fetches
	// compare their token against it before applying ("latest wins")
	gen atomic.Uint64
}

func New(itemStore *store.ItemStore, src source.DocumentSource, settings *types.Settings, renderer Renderer) *Controller {
	return &Controller{
		store:    itemStore,
		src:      src,
		settings: settings,
		renderer: renderer,
		query:    types.DefaultQuery(),
	}
}

// Reload refetches items and choice lists and resets the whole query to its
// defaults. Triggered on startup and whenever the library or the configured
// columns change upstream.
func (c *Controller) Reload(ctx context.Context) error {
	token := c.gen.Add(1)
	listing := c.settings.ListingSnapshot()

	extra := []string{}
	if listing.TitleColumn != "" {
		extra = append(extra, listing.TitleColumn)
	}
	if listing.DescriptionColumn != "" {
		extra = append(extra, listing.DescriptionColumn)
	}

	items, err := c.src.FetchItems(ctx, listing.Library, listing.CategoryColumn, listing.SubCategoryColumn, extra)
	if err != nil {
		c.renderError(err)
		return err
	}
	catChoices, err := c.src.FetchChoices(ctx, listing.Library, listing.CategoryColumn)
	if err != nil {
		c.renderError(err)
		return err
	}
	subChoices, err := c.src.FetchChoices(ctx, listing.Library, listing.SubCategoryColumn)
	if err != nil {
		c.renderError(err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != token {
		// a newer gesture or reload won, this response is stale
		log.Printf("discarding stale reload (token %d)", token)
		return nil
	}

	c.store.Load(items)
	c.set = facet.BuildSet(c.store.All(), catChoices, subChoices)

	c.query = types.DefaultQuery()
	if len(c.set.Categories) > 0 {
		c.query.Category = c.set.Categories[0]
		c.query.SubCategory = c.set.FirstSubCategory(c.query.Category)
	}
	c.render()
	return nil
}

// SetCategory selects a category: the first sub-category of that category is
// auto-selected and the page resets to 1. When an authoritative sub-category
// column is configured the choices are refreshed in the background; a stale
// response never overwrites a newer selection.
func (c *Controller) SetCategory(ctx context.Context, category string) {
	token := c.gen.Add(1)

	c.mu.Lock()
	c.query.Category = category
	c.query.SubCategory = c.firstSub(category)
	c.query.Page = 1
	c.render()
	listing := c.settings.ListingSnapshot()
	c.mu.Unlock()

	if c.src == nil || listing.SubCategoryColumn == "" {
		return
	}
	go c.refreshSubChoices(ctx, listing, token)
}

func (c *Controller) refreshSubChoices(ctx context.Context, listing types.ListingSettings, token uint64) {
	choices, err := c.src.FetchChoices(ctx, listing.Library, listing.SubCategoryColumn)
	if err != nil {
		log.Printf("sub-category choice refresh failed: %v", err)
		return
	}
	if len(choices) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != token || c.set == nil {
		return
	}
	c.set.ReplaceSubChoices(choices)
	if !slices.Contains(choices, c.query.SubCategory) {
		c.query.SubCategory = c.set.FirstSubCategory(c.query.Category)
		c.query.Page = 1
	}
	c.render()
}

// SetSubCategory selects a sub-tab and resets the page to 1. The token bump
// invalidates any in-flight choice refresh so it cannot override this newer
// selection.
func (c *Controller) SetSubCategory(sub string) {
	c.gen.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SubCategory = sub
	c.query.Page = 1
	c.render()
}

// SetSearch applies a search term and resets the page to 1. Safe to call on
// every input event, derivation is pure and side effect free.
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SearchTerm = term
	c.query.Page = 1
	c.render()
}

// ToggleSort flips the direction on the active sort column or switches to a
// new column ascending. The page is deliberately kept, sorting does not
// change the result set size.
func (c *Controller) ToggleSort(column string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = c.query.ToggleSort(column)
	c.render()
}

// NextPage advances one page, a no-op on the last page.
func (c *Controller) NextPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.Page.Page >= c.last.Page.PageCount {
		return
	}
	c.query.Page = c.last.Page.Page + 1
	c.render()
}

// PrevPage goes back one page, a no-op on page 1.
func (c *Controller) PrevPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.Page.Page <= 1 {
		return
	}
	c.query.Page = c.last.Page.Page - 1
	c.render()
}

// Snapshot returns the last rendered view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Items returns the currently loaded item collection.
func (c *Controller) Items() []types.DocumentItem {
	return c.store.All()
}

// Query returns a copy of the active view query.
func (c *Controller) Query() types.ViewQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *Controller) firstSub(category string) string {
	if c.set == nil {
		return ""
	}
	return c.set.FirstSubCategory(category)
}

// render recomputes the view under the held lock. Facet lists are always
// derived before the page, the boundary binds its handlers only after both
// exist.
func (c *Controller) render() {
	listing := c.settings.ListingSnapshot()
	items := c.store.All()
	if c.set == nil {
		c.set = facet.BuildSet(items, nil, nil)
	}

	subs := c.set.SubCategories(c.query.Category)
	page := view.Derive(items, c.query, view.FromListing(listing))

	c.last = View{
		Categories:    c.set.Categories,
		SubCategories: subs,
		Query:         c.query,
		Page:          page,
	}
	if c.renderer != nil {
		c.renderer.RenderPage(c.last)
	}
}

func (c *Controller) renderError(err error) {
	log.Printf("reload failed: %v", err)
	if c.renderer != nil {
		c.renderer.RenderError(err)
	}
}

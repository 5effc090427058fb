package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matst80/slask-docs/pkg/common"
	"github.com/matst80/slask-docs/pkg/controller"
	"github.com/matst80/slask-docs/pkg/request"
	"github.com/matst80/slask-docs/pkg/source"
	"github.com/matst80/slask-docs/pkg/store"
	"github.com/matst80/slask-docs/pkg/types"
	"github.com/matst80/slask-docs/pkg/view"
)

var (
	viewDerives = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskdocs_view_derives_total",
		Help: "The total number of derived listing pages",
	})
	searches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskdocs_searches_total",
		Help: "The total number of search gestures",
	})
	facetClicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskdocs_facet_clicks_total",
		Help: "The total number of category and sub-category gestures",
	})
)

// WebServer exposes the listing engine and the access-request workflow over
// HTTP. Browse state is kept per session, mirroring one widget instance per
// browser; every new session loads its own item snapshot.
type WebServer struct {
	Source      source.DocumentSource
	Catalog     source.Catalog
	Settings    *types.Settings
	Coordinator *request.Coordinator
	Auth        AuthHandler

	sessionMu sync.Mutex
	sessions  map[int]*controller.Controller

	settingsSaver SettingsSaver
	choiceCache   *ChoiceCache
}

func NewWebServer(src source.DocumentSource, catalog source.Catalog, settings *types.Settings, coordinator *request.Coordinator, auth AuthHandler) *WebServer {
	return &WebServer{
		Source:      src,
		Catalog:     catalog,
		Settings:    settings,
		Coordinator: coordinator,
		Auth:        auth,
		sessions:    map[int]*controller.Controller{},
	}
}

// session returns the controller bound to a session id, loading items on
// first use. A failed initial load evicts the session again so the next
// gesture retries instead of serving an empty view forever.
func (ws *WebServer) session(r *http.Request, sessionId int) (*controller.Controller, error) {
	ws.sessionMu.Lock()
	c, ok := ws.sessions[sessionId]
	if !ok {
		c = controller.New(store.NewItemStore(), ws.Source, ws.Settings, nil)
		ws.sessions[sessionId] = c
	}
	ws.sessionMu.Unlock()
	if !ok {
		if err := c.Reload(r.Context()); err != nil {
			ws.sessionMu.Lock()
			delete(ws.sessions, sessionId)
			ws.sessionMu.Unlock()
			return nil, err
		}
	}
	return c, nil
}

// SetChoiceCache wires the choice cache so reloads drop cached choice lists
// before refetching.
func (ws *WebServer) SetChoiceCache(c *ChoiceCache) {
	ws.choiceCache = c
}

func (ws *WebServer) invalidateChoices(ctx context.Context) {
	if ws.choiceCache != nil {
		ws.choiceCache.Invalidate(ctx)
	}
}

// Reload refreshes every live session with a fresh item snapshot. Used when
// the upstream source announces changed documents.
func (ws *WebServer) Reload(ctx context.Context) error {
	ws.invalidateChoices(ctx)
	ws.sessionMu.Lock()
	controllers := make([]*controller.Controller, 0, len(ws.sessions))
	for _, c := range ws.sessions {
		controllers = append(controllers, c)
	}
	ws.sessionMu.Unlock()

	var lastErr error
	for _, c := range controllers {
		if err := c.Reload(ctx); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// HandleView returns the current view. With query parameters present the
// page is derived statelessly from the decoded ViewQuery, useful for direct
// links; otherwise the session's last rendered view is returned.
func (ws *WebServer) HandleView(w http.ResponseWriter, r *http.Request, sessionId int) error {
	c, err := ws.session(r, sessionId)
	if err != nil {
		return common.JsonError(w, http.StatusBadGateway, err.Error())
	}
	if len(r.URL.Query()) == 0 {
		return common.WriteJson(w, c.Snapshot())
	}

	q, err := types.QueryFromRequest(r)
	if err != nil {
		return common.JsonError(w, http.StatusBadRequest, err.Error())
	}
	listing := ws.Settings.ListingSnapshot()
	viewDerives.Inc()
	if q.SearchTerm != "" {
		searches.Inc()
	}
	page := view.Derive(c.Items(), q, view.FromListing(listing))
	return common.WriteJson(w, page)
}

// HandleFacets returns the facet lists of the current session view.
func (ws *WebServer) HandleFacets(w http.ResponseWriter, r *http.Request, sessionId int) error {
	c, err := ws.session(r, sessionId)
	if err != nil {
		return common.JsonError(w, http.StatusBadGateway, err.Error())
	}
	v := c.Snapshot()
	return common.WriteJson(w, map[string]any{
		"categories":    v.Categories,
		"subCategories": v.SubCategories,
	})
}

func (ws *WebServer) gesture(fn func(ctx context.Context, c *controller.Controller, value string)) http.HandlerFunc {
	return common.JsonHandler(func(w http.ResponseWriter, r *http.Request, sessionId int) error {
		c, err := ws.session(r, sessionId)
		if err != nil {
			return common.JsonError(w, http.StatusBadGateway, err.Error())
		}
		// background choice refreshes outlive the response
		fn(context.WithoutCancel(r.Context()), c, r.URL.Query().Get("v"))
		viewDerives.Inc()
		return common.WriteJson(w, c.Snapshot())
	})
}

// HandleRequestAccess runs the access-request workflow for the document id
// in the query. The requester identity comes from the signed-in user.
func (ws *WebServer) HandleRequestAccess(w http.ResponseWriter, r *http.Request, sessionId int) error {
	documentId := r.URL.Query().Get("id")
	requester, err := ws.Auth.Identity(r)
	if err != nil {
		return common.JsonError(w, http.StatusUnauthorized, "sign in to request access")
	}

	outcome, err := ws.Coordinator.Submit(r.Context(), documentId, requester)
	if err != nil {
		status := http.StatusBadGateway
		if types.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		return common.JsonError(w, status, "Failed to submit request: "+err.Error())
	}
	return common.WriteJson(w, map[string]any{
		"message": outcome.Message(),
		"created": outcome.Created,
		"count":   outcome.Count,
	})
}

// SetupRoutes registers every endpoint on the mux.
func (ws *WebServer) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", common.JsonHandler(ws.HandleView))
	mux.HandleFunc("/api/facets", common.JsonHandler(ws.HandleFacets))

	mux.HandleFunc("/api/view/category", ws.gesture(func(ctx context.Context, c *controller.Controller, v string) {
		facetClicks.Inc()
		c.SetCategory(ctx, v)
	}))
	mux.HandleFunc("/api/view/sub", ws.gesture(func(_ context.Context, c *controller.Controller, v string) {
		facetClicks.Inc()
		c.SetSubCategory(v)
	}))
	mux.HandleFunc("/api/view/search", ws.gesture(func(_ context.Context, c *controller.Controller, v string) {
		searches.Inc()
		c.SetSearch(v)
	}))
	mux.HandleFunc("/api/view/sort", ws.gesture(func(_ context.Context, c *controller.Controller, v string) {
		c.ToggleSort(v)
	}))
	mux.HandleFunc("/api/view/page/next", ws.gesture(func(_ context.Context, c *controller.Controller, _ string) {
		c.NextPage()
	}))
	mux.HandleFunc("/api/view/page/prev", ws.gesture(func(_ context.Context, c *controller.Controller, _ string) {
		c.PrevPage()
	}))
	mux.HandleFunc("/api/view/reload", common.JsonHandler(func(w http.ResponseWriter, r *http.Request, sessionId int) error {
		c, err := ws.session(r, sessionId)
		if err != nil {
			return common.JsonError(w, http.StatusBadGateway, err.Error())
		}
		ws.invalidateChoices(r.Context())
		if err := c.Reload(r.Context()); err != nil {
			return common.JsonError(w, http.StatusBadGateway, err.Error())
		}
		return common.WriteJson(w, c.Snapshot())
	}))

	mux.HandleFunc("/api/request", common.JsonHandler(ws.HandleRequestAccess))

	mux.HandleFunc("/auth/login", ws.Auth.Login)
	mux.HandleFunc("/auth/logout", ws.Auth.Logout)
	mux.HandleFunc("/auth/callback", ws.Auth.AuthCallback)
	mux.HandleFunc("/auth/user", ws.Auth.User)

	ws.setupAdminRoutes(mux)
}

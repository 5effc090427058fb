package server

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/matst80/slask-docs/pkg/common"
	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
	"github.com/matst80/slask-docs/pkg/source"
)

// SettingsSaver persists settings after an admin change.
type SettingsSaver interface {
	SaveSettings() error
}

// SetSettingsSaver wires the persistence used by the admin settings
// endpoint. Optional, without it changes live until restart.
func (ws *WebServer) SetSettingsSaver(s SettingsSaver) {
	ws.settingsSaver = s
}

func (ws *WebServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ws.Settings.RLock()
		defer ws.Settings.RUnlock()
		_ = common.WriteJson(w, ws.Settings)
	case http.MethodPut, http.MethodPost:
		ws.Settings.Lock()
		err := jsoncompat.Decode(r.Body, ws.Settings)
		ws.Settings.Unlock()
		if err != nil {
			_ = common.JsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ws.settingsSaver != nil {
			if err := ws.settingsSaver.SaveSettings(); err != nil {
				_ = common.JsonError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		// sessions pick the new configuration up on their next reload
		_ = common.WriteJson(w, ws.Settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

const (
	documentLibraryTemplate = 101
	genericListTemplate     = 100
)

func (ws *WebServer) handleLists(w http.ResponseWriter, r *http.Request) {
	baseTemplate := documentLibraryTemplate
	if v := r.URL.Query().Get("template"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			baseTemplate = n
		}
	}
	lists, err := ws.Catalog.Lists(r.Context(), baseTemplate)
	if err != nil {
		_ = common.JsonError(w, http.StatusBadGateway, err.Error())
		return
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].Title < lists[j].Title })
	_ = common.WriteJson(w, lists)
}

// columnRole filters returned columns to those usable for a configuration
// slot: choice columns drive facets, text columns the display overrides and
// simple columns the request store.
func columnMatchesRole(c source.ColumnInfo, role string) bool {
	switch role {
	case "choice":
		return c.Type == "Choice" || c.Type == "MultiChoice"
	case "text":
		return c.Type == "Text" || c.Type == "Note"
	case "simple":
		return c.Type == "Text" || c.Type == "Number"
	default:
		return true
	}
}

func (ws *WebServer) handleColumns(w http.ResponseWriter, r *http.Request) {
	list := r.URL.Query().Get("list")
	if list == "" {
		_ = common.JsonError(w, http.StatusBadRequest, "list parameter is required")
		return
	}
	columns, err := ws.Catalog.Columns(r.Context(), list)
	if err != nil {
		_ = common.JsonError(w, http.StatusBadGateway, err.Error())
		return
	}
	role := r.URL.Query().Get("role")
	filtered := make([]source.ColumnInfo, 0, len(columns))
	for _, c := range columns {
		if columnMatchesRole(c, role) {
			filtered = append(filtered, c)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		ti, tj := filtered[i].Title, filtered[j].Title
		if ti == "" {
			ti = filtered[i].InternalName
		}
		if tj == "" {
			tj = filtered[j].InternalName
		}
		return ti < tj
	})
	_ = common.WriteJson(w, filtered)
}

func (ws *WebServer) setupAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/settings", ws.Auth.Middleware(ws.handleSettings))
	mux.HandleFunc("/admin/lists", ws.Auth.Middleware(ws.handleLists))
	mux.HandleFunc("/admin/columns", ws.Auth.Middleware(ws.handleColumns))
}

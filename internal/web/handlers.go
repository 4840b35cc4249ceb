package web

import (
	"net/http"
	"strconv"

	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	lib      *ops.Library
	renderer *Renderer
}

// HandleList handles GET /components: list components, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.lib, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: h.renderer.page("Components", "components"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleSearch handles GET /components/search: substring search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	data := SearchPageData{
		PageData: h.renderer.page("Search", "search"),
		Query:    query,
		HasQuery: query != "",
	}

	if query == "" {
		// If htmx targets #results (user cleared the search box), return just the results fragment
		if r.Header.Get("HX-Target") == "results" {
			h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
			return
		}
		h.renderer.renderPage(w, r, "search", data)
		return
	}

	result, err := ops.Search(r.Context(), h.lib, ops.SearchInput{
		Query:  query,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Items = result.Items
	data.Pagination = result.Pagination

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
		return
	}

	h.renderer.renderPage(w, r, "search", data)
}

// HandleDetail handles GET /components/{id}: one component with its activity.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("component ID is required"))
		return
	}

	c, err := ops.Fetch(r.Context(), h.lib, ops.FetchInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, c)
		return
	}

	data := DetailPageData{
		PageData: h.renderer.page(c.MPN, "components"),
		Component: c,
	}
	if c.Description != nil {
		data.DescriptionHTML = renderMarkdown(*c.Description)
	}
	h.renderer.renderPage(w, r, "detail", data)
}

// HandleDelete handles DELETE /components/{id}: remove a component and its files.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("component ID is required"))
		return
	}

	result, err := ops.Delete(r.Context(), h.lib, ops.DeleteInput{
		ID:        id,
		KeepFiles: parseBoolParam(r, "keep_files"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/components")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/components", http.StatusFound)
}

// HandleLibrary handles GET /library: layout, tool and registration status.
func (h *Handlers) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	status, err := ops.Status(r.Context(), h.lib)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, status)
		return
	}

	h.renderer.renderPage(w, r, "library", LibraryPageData{
		PageData: h.renderer.page("Library", "library"),
		Status: status,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

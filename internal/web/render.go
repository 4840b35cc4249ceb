package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "components", "search", "library"
}

// ListPageData is the template data for the component list page.
type ListPageData struct {
	PageData
	Items      []component.Component
	Pagination ops.Pagination
}

// DetailPageData is the template data for the component detail page.
type DetailPageData struct {
	PageData
	Component       *ops.FetchOutput
	DescriptionHTML template.HTML
}

// SearchPageData is the template data for the search page.
type SearchPageData struct {
	PageData
	Query      string
	Items      []component.Component
	Pagination ops.Pagination
	HasQuery   bool
}

// LibraryPageData is the template data for the library status page.
type LibraryPageData struct {
	PageData
	Status *ops.StatusOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// pages lists every page template. Each is parsed on top of its own clone of
// layout.html so the pages can all define a "content" block.
var pages = []string{"list", "detail", "search", "library", "error"}

// Renderer holds the parsed page templates.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    zerolog.Logger
}

// NewRenderer parses layout.html and the page templates from templateFS.
// It panics on a template error since the templates are embedded.
func NewRenderer(templateFS fs.FS, version string, logger zerolog.Logger) *Renderer {
	layout := template.Must(template.New("layout").Funcs(template.FuncMap{
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"formatTime":  formatTime,
		"formatCount": formatCount,
		"deref":       deref,
		"hasValue":    hasValue,
	}).ParseFS(templateFS, "layout.html"))

	r := &Renderer{
		templates: make(map[string]*template.Template, len(pages)),
		version:   version,
		logger:    logger,
	}
	for _, name := range pages {
		t := template.Must(layout.Clone())
		r.templates[name] = template.Must(t.ParseFS(templateFS, name+".html"))
	}
	return r
}

// page returns the common page fields.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

func isHTMX(req *http.Request) bool {
	return req != nil && req.Header.Get("HX-Request") == "true"
}

func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders the full layout, or only the "content" block for
// htmx requests since those swap into an existing page.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	if isHTMX(req) {
		r.renderBlock(w, status, name, "content", data)
		return
	}
	r.renderBlock(w, status, name, "layout", data)
}

// renderBlock executes one block of a page into a buffer first, so a template
// failure still produces a clean 500.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	log := r.logger.With().Str("template", page).Str("block", block).Logger()
	t := r.templates[page]
	if t == nil {
		log.Error().Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Error().Err(err).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError writes err as an htmx fragment, a JSON envelope or the error page,
// depending on the request. Messages of internal errors are logged and replaced.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var bErr *errors.BridgeError
	if !stderrors.As(err, &bErr) {
		bErr = errors.NewInternal(err)
	}
	status, message := bErr.Status, bErr.Message
	if bErr.Code == errors.ErrInternal {
		r.logger.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
		message = "an internal error occurred"
	}

	switch {
	case isHTMX(req):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
	case wantsJSON(req):
		renderJSON(w, status, map[string]any{"error": map[string]any{
			"code":    string(bErr.Code),
			"message": message,
			"status":  status,
		}})
	default:
		r.renderPageStatus(w, req, status, "error", ErrorPageData{
			PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
			StatusCode: status,
			Message:    message,
		})
	}
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts a component description to HTML. goldmark's default
// renderer drops raw HTML from the source.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatCount groups digits in threes: 1234567 -> "1,234,567".
func formatCount(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + string(out)
}

// deref returns the value behind an optional component field, or "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// hasValue reports whether an optional component field is set and non-empty.
func hasValue(s *string) bool {
	return s != nil && *s != ""
}

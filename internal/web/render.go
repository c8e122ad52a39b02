package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
	"github.com/nafisfuad/coursedeck/internal/prefs"
	"github.com/nafisfuad/coursedeck/internal/query"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "courses"
}

// courseRow is one table row: the section plus the caller's
// personalization state and the pre-rendered time display.
type courseRow struct {
	course.Course
	Starred  bool               `json:"starred"`
	Priority int                `json:"priority"`
	Display  course.TimeDisplay `json:"timeDisplay"`
}

// columnState describes one table column for the column picker.
type columnState struct {
	Name    string
	Visible bool
}

// CoursesPageData is the template data for the course list page.
type CoursesPageData struct {
	PageData
	Meta           course.DataMeta
	Rows           []courseRow
	Total          int
	Shown          int
	HasMore        bool
	NextLimit      int
	Query          string
	CourseFilters  []string
	FacultyFilters []string
	DayFilters     []string
	AllDays        []string
	StarredOnly    bool
	SavedCourses   []string
	SavedFaculties []string
	Columns        []columnState
}

// ColumnVisible reports whether the named column is visible. Used by the
// courses template to skip hidden cells.
func (d CoursesPageData) ColumnVisible(name string) bool {
	for _, c := range d.Columns {
		if c.Name == name {
			return c.Visible
		}
	}
	return false
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// ApiResponse is the envelope for JSON API responses.
type ApiResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *ApiError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// ApiError carries the failure half of an ApiResponse.
type ApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"courses": "courses.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var dErr *errors.DeckError
	if !stderrors.As(err, &dErr) {
		dErr = errors.NewInternal(err)
	}

	status := dErr.Status
	message := dErr.Message

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, status, ApiResponse{
			Success:   false,
			Error:     &ApiError{Code: string(dErr.Code), Message: message},
			Timestamp: timestamp(),
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// timestamp returns the response timestamp in RFC 3339 UTC.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// buildRows converts derived courses into annotated table rows.
func buildRows(courses []course.Course, store *prefs.Store) []courseRow {
	rows := make([]courseRow, len(courses))
	for i, c := range courses {
		rows[i] = courseRow{
			Course:   c,
			Starred:  store.IsStarred(c.ID),
			Priority: store.GetPriority(c.ID),
			Display:  course.FormatTimeDisplay(c.Time),
		}
	}
	return rows
}

// columnStates returns all table columns with their current visibility.
func columnStates(store *prefs.Store) []columnState {
	states := make([]columnState, 0, len(prefs.Columns))
	for _, col := range prefs.Columns {
		states = append(states, columnState{
			Name:    string(col),
			Visible: store.IsColumnVisible(col),
		})
	}
	return states
}

// dayFilterNames converts day filter tokens to plain strings for templates.
func dayFilterNames(filters []query.DayFilter) []string {
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = string(f)
	}
	return names
}

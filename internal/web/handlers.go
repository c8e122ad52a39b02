package web

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/nafisfuad/coursedeck/internal/config"
	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
	"github.com/nafisfuad/coursedeck/internal/prefs"
	"github.com/nafisfuad/coursedeck/internal/query"
	"github.com/nafisfuad/coursedeck/internal/snapshot"
)

// maxImportBytes caps the accepted size of an uploaded preferences document.
const maxImportBytes = 1 << 20

// Handlers contains HTTP route handlers for the web UI.
// The prefs store is not safe for concurrent use, so every handler that
// touches it holds mu.
type Handlers struct {
	snap     *snapshot.Snapshot
	store    *prefs.Store
	cfg      *config.Config
	renderer *Renderer

	mu sync.Mutex
}

// engineFromQuery builds a query engine for one request from its URL
// parameters. Callers must hold mu.
func (h *Handlers) engineFromQuery(r *http.Request, data *course.CourseData) (*query.Engine, error) {
	eng := query.NewEngine(data.Courses, h.store, h.cfg.PageSize)

	q := r.URL.Query()
	eng.SetSearch(q.Get("q"))
	for _, code := range q["course"] {
		eng.ToggleCourseFilter(code)
	}
	for _, f := range q["faculty"] {
		eng.ToggleFacultyFilter(f)
	}
	for _, d := range q["day"] {
		if err := eng.ToggleDayFilter(query.DayFilter(d)); err != nil {
			return nil, err
		}
	}
	if parseBoolParam(r, "starred") {
		eng.ToggleStarredOnly()
	}

	if sorts := q["sort"]; len(sorts) > 0 {
		eng.ClearSorts()
		for _, s := range sorts {
			key, dir, _ := strings.Cut(s, ":")
			if dir != "" && dir != "asc" && dir != "desc" {
				return nil, errors.NewInvalidRequest("sort direction must be asc or desc: " + dir)
			}
			if err := eng.ToggleSort(query.SortKey(key)); err != nil {
				return nil, err
			}
			if dir == "desc" {
				if err := eng.ToggleSort(query.SortKey(key)); err != nil {
					return nil, err
				}
			}
		}
	}

	return eng, nil
}

// coursesPageData derives the full course list view for one request.
// Callers must hold mu.
func (h *Handlers) coursesPageData(r *http.Request) (*CoursesPageData, error) {
	data, err := h.snap.Load()
	if err != nil {
		return nil, err
	}

	eng, err := h.engineFromQuery(r, data)
	if err != nil {
		return nil, err
	}

	matched := eng.Courses()
	total := len(matched)

	shown := parseIntParam(r, "limit", h.cfg.PageSize)
	if shown <= 0 {
		shown = config.DefaultPageSize
	}
	if shown > total {
		shown = total
	}

	return &CoursesPageData{
		PageData: PageData{
			Title:   "Courses",
			Version: h.renderer.version,
			Nav:     "courses",
		},
		Meta:           data.Meta,
		Rows:           buildRows(matched[:shown], h.store),
		Total:          total,
		Shown:          shown,
		HasMore:        shown < total,
		NextLimit:      shown + h.cfg.PageSize,
		Query:          r.URL.Query().Get("q"),
		CourseFilters:  eng.CourseFilters(),
		FacultyFilters: eng.FacultyFilters(),
		DayFilters:     dayFilterNames(eng.DayFilters()),
		AllDays:        dayFilterNames(query.AllDayFilters),
		StarredOnly:    eng.StarredOnly(),
		SavedCourses:   h.store.SavedCourses(),
		SavedFaculties: h.store.SavedFaculties(),
		Columns:        columnStates(h.store),
	}, nil
}

// HandleCourses handles GET /courses, the course listing page.
func (h *Handlers) HandleCourses(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.coursesPageData(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "courses", *data)
}

// HandleAPICourses handles GET /api/courses, the JSON course listing.
func (h *Handlers) HandleAPICourses(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.coursesPageData(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]any{
			"meta":    data.Meta,
			"items":   data.Rows,
			"total":   data.Total,
			"shown":   data.Shown,
			"hasMore": data.HasMore,
		},
		Timestamp: timestamp(),
	})
}

// HandleStar handles POST /courses/{id}/star to toggle a section star.
func (h *Handlers) HandleStar(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("section id is required"))
		return
	}

	data, err := h.snap.Load()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if !sectionExists(data, id) {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	starred, err := h.store.ToggleStar(id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header so the whole view refreshes
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/courses")
		w.WriteHeader(http.StatusOK)
		return
	}

	// JSON request
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, ApiResponse{
			Success:   true,
			Data:      map[string]any{"id": id, "starred": starred},
			Timestamp: timestamp(),
		})
		return
	}

	// Default: redirect
	http.Redirect(w, r, "/courses", http.StatusFound)
}

// HandlePriority handles POST /courses/{id}/priority to set or bump a
// section's sort priority. The form carries either priority or delta.
func (h *Handlers) HandlePriority(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("section id is required"))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	priorityVal := r.FormValue("priority")
	deltaVal := r.FormValue("delta")
	if (priorityVal == "") == (deltaVal == "") {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("exactly one of priority or delta is required"))
		return
	}

	data, err := h.snap.Load()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if !sectionExists(data, id) {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	var current int
	if priorityVal != "" {
		p, err := strconv.Atoi(priorityVal)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("priority must be an integer"))
			return
		}
		if err := h.store.SetPriority(id, p); err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		current = h.store.GetPriority(id)
	} else {
		d, err := strconv.Atoi(deltaVal)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("delta must be an integer"))
			return
		}
		current, err = h.store.BumpPriority(id, d)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/courses")
		w.WriteHeader(http.StatusOK)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, ApiResponse{
			Success:   true,
			Data:      map[string]any{"id": id, "priority": current},
			Timestamp: timestamp(),
		})
		return
	}

	http.Redirect(w, r, "/courses", http.StatusFound)
}

// HandleExport handles GET /prefs/export to download the personalization
// state as a portable document.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	w.Header().Set("Content-Disposition", `attachment; filename="coursedeck-prefs.json"`)
	renderJSON(w, http.StatusOK, h.store.Export())
}

// HandleImport handles POST /prefs/import to replace personalization state
// from an uploaded document. An unparsable document leaves state untouched.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("could not read request body"))
		return
	}
	if len(body) == 0 {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("import document is required"))
		return
	}

	if err := h.store.Import(body); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/courses")
		w.WriteHeader(http.StatusOK)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, ApiResponse{
			Success:   true,
			Data:      map[string]any{"imported": true},
			Timestamp: timestamp(),
		})
		return
	}

	http.Redirect(w, r, "/courses", http.StatusFound)
}

// sectionExists reports whether the snapshot carries a section with the id.
func sectionExists(data *course.CourseData, id string) bool {
	for _, c := range data.Courses {
		if c.ID == id {
			return true
		}
	}
	return false
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

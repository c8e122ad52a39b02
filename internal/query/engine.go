// Package query derives the filtered, sorted, incrementally revealed view
// of a course snapshot from session state and device personalization.
package query

import (
	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
	"github.com/nafisfuad/coursedeck/internal/prefs"
)

// Engine holds the session query state over one immutable course slice.
// Mutators update state; Courses re-derives the view in full on each call.
// Not safe for concurrent use; concurrent surfaces must serialize access.
type Engine struct {
	courses []course.Course
	prefs   *prefs.Store

	search         string
	courseFilters  []string
	facultyFilters []string
	dayFilters     map[DayFilter]bool
	starredOnly    bool
	sorts          []SortSpec

	pageSize int
	visible  int
}

// NewEngine creates an engine over the given snapshot courses.
// The view starts sorted by priority descending, with the reveal cursor
// at one page.
func NewEngine(courses []course.Course, store *prefs.Store, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Engine{
		courses:    courses,
		prefs:      store,
		dayFilters: make(map[DayFilter]bool),
		sorts:      []SortSpec{{Key: SortPriority, Direction: Desc}},
		pageSize:   pageSize,
		visible:    pageSize,
	}
}

// Prefs exposes the personalization store backing this engine.
func (e *Engine) Prefs() *prefs.Store {
	return e.prefs
}

// Search returns the current free-text query.
func (e *Engine) Search() string {
	return e.search
}

// SetSearch replaces the free-text query and resets the reveal cursor.
func (e *Engine) SetSearch(q string) {
	e.search = q
	e.resetReveal()
}

// CourseFilters returns the active course-code filters in toggle order.
func (e *Engine) CourseFilters() []string {
	return append([]string(nil), e.courseFilters...)
}

// FacultyFilters returns the active faculty filters in toggle order.
func (e *Engine) FacultyFilters() []string {
	return append([]string(nil), e.facultyFilters...)
}

// DayFilters returns the active day-filter tokens in canonical order.
func (e *Engine) DayFilters() []DayFilter {
	out := make([]DayFilter, 0, len(e.dayFilters))
	for _, d := range AllDayFilters {
		if e.dayFilters[d] {
			out = append(out, d)
		}
	}
	return out
}

// StarredOnly reports whether the starred-only gate is active.
func (e *Engine) StarredOnly() bool {
	return e.starredOnly
}

// ToggleCourseFilter adds or removes an active course-code filter.
// Identity is case-insensitive; the first-seen casing is kept.
func (e *Engine) ToggleCourseFilter(code string) {
	e.courseFilters = toggleString(e.courseFilters, code)
	e.resetReveal()
}

// ToggleFacultyFilter adds or removes an active faculty filter.
func (e *Engine) ToggleFacultyFilter(faculty string) {
	e.facultyFilters = toggleString(e.facultyFilters, faculty)
	e.resetReveal()
}

// ToggleDayFilter adds or removes a day-filter token.
func (e *Engine) ToggleDayFilter(day DayFilter) error {
	if !ValidDayFilter(day) {
		return errors.NewInvalidRequest("unknown day filter: " + string(day))
	}
	if e.dayFilters[day] {
		delete(e.dayFilters, day)
	} else {
		e.dayFilters[day] = true
	}
	e.resetReveal()
	return nil
}

// ToggleStarredOnly flips the starred-only gate.
func (e *Engine) ToggleStarredOnly() {
	e.starredOnly = !e.starredOnly
	e.resetReveal()
}

// ClearFilters resets the search text, all active filters, and the
// starred-only gate. Saved sets, sort order, and column visibility are
// deliberately untouched.
func (e *Engine) ClearFilters() {
	e.search = ""
	e.courseFilters = nil
	e.facultyFilters = nil
	e.dayFilters = make(map[DayFilter]bool)
	e.starredOnly = false
	e.resetReveal()
}

// RemoveSavedCourse removes a saved course code and drops any matching
// active filter with it.
func (e *Engine) RemoveSavedCourse(code string) (bool, error) {
	removed, err := e.prefs.RemoveSavedCourse(code)
	if err != nil {
		return false, err
	}
	if removed {
		if next, dropped := removeString(e.courseFilters, code); dropped {
			e.courseFilters = next
			e.resetReveal()
		}
	}
	return removed, nil
}

// RemoveSavedFaculty removes a saved faculty and drops any matching
// active filter with it.
func (e *Engine) RemoveSavedFaculty(faculty string) (bool, error) {
	removed, err := e.prefs.RemoveSavedFaculty(faculty)
	if err != nil {
		return false, err
	}
	if removed {
		if next, dropped := removeString(e.facultyFilters, faculty); dropped {
			e.facultyFilters = next
			e.resetReveal()
		}
	}
	return removed, nil
}

// Courses derives the filtered and sorted course sequence in full.
func (e *Engine) Courses() []course.Course {
	out := make([]course.Course, 0, len(e.courses))
	for _, c := range e.courses {
		if e.matches(c) {
			out = append(out, c)
		}
	}
	e.sortCourses(out)
	return out
}

// Visible returns the revealed prefix of the derived sequence.
func (e *Engine) Visible() []course.Course {
	all := e.Courses()
	if len(all) <= e.visible {
		return all
	}
	return all[:e.visible]
}

// VisibleCount returns the current reveal cursor position.
func (e *Engine) VisibleCount() int {
	return e.visible
}

// RevealMore advances the reveal cursor by one page. It never re-filters
// or re-sorts; the next Visible call simply returns a longer prefix.
func (e *Engine) RevealMore() {
	e.visible += e.pageSize
}

// resetReveal returns the cursor to its initial window. Every filter
// criterion change lands here.
func (e *Engine) resetReveal() {
	e.visible = e.pageSize
}

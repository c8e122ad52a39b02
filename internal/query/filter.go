package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nafisfuad/coursedeck/internal/course"
)

// DayFilter is a day-filter token: either a single source day letter
// requiring an exact day-run match, or a letter pair requiring containment.
type DayFilter string

// AllDayFilters lists the valid tokens in display order.
var AllDayFilters = []DayFilter{"ST", "MW", "RA", "S", "T", "M", "W", "R", "A"}

// pairDayFilters are the tokens matched by containment rather than equality.
var pairDayFilters = map[DayFilter]bool{"ST": true, "MW": true, "RA": true}

// ValidDayFilter reports whether day is a known token.
func ValidDayFilter(day DayFilter) bool {
	for _, d := range AllDayFilters {
		if d == day {
			return true
		}
	}
	return false
}

// dayRunRegex extracts the leading day-letter run of a raw schedule string.
var dayRunRegex = regexp.MustCompile(`^([A-Z]+)`)

// matches applies the full filter predicate: a course survives only if
// every active criterion holds.
func (e *Engine) matches(c course.Course) bool {
	if !matchesSearch(c, e.search) {
		return false
	}
	if !matchesValueFilter(c.CourseCode, e.courseFilters) {
		return false
	}
	if !matchesValueFilter(c.Faculty, e.facultyFilters) {
		return false
	}
	if !e.matchesDayFilter(c) {
		return false
	}
	if e.starredOnly && !e.prefs.IsStarred(c.ID) {
		return false
	}
	return true
}

// matchesSearch splits the query on whitespace and requires every term to
// be a substring of the course's searchable text. Terms are matched
// case-insensitively and in any order; an empty query matches everything.
func matchesSearch(c course.Course, query string) bool {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return true
	}

	searchable := strings.ToLower(strings.Join([]string{
		c.CourseCode,
		strconv.Itoa(c.Section),
		c.Faculty,
		c.Time.Raw,
		c.Room,
		strconv.Itoa(c.Index),
	}, " "))

	for _, term := range terms {
		if !strings.Contains(searchable, term) {
			return false
		}
	}
	return true
}

// matchesValueFilter checks value against an active filter set by
// case-insensitive equality. An empty set matches everything.
func matchesValueFilter(value string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	norm := normalize(value)
	for _, f := range filters {
		if normalize(f) == norm {
			return true
		}
	}
	return false
}

// matchesDayFilter checks the course's leading day run against the active
// tokens: single letters must equal the run exactly, pairs must be fully
// contained in it. Any one matching token is enough.
func (e *Engine) matchesDayFilter(c course.Course) bool {
	if len(e.dayFilters) == 0 {
		return true
	}

	days := ""
	if m := dayRunRegex.FindStringSubmatch(c.Time.Raw); m != nil {
		days = m[1]
	}

	for day := range e.dayFilters {
		if pairDayFilters[day] {
			if containsAllLetters(days, string(day)) {
				return true
			}
		} else if days == string(day) {
			return true
		}
	}
	return false
}

// containsAllLetters reports whether every letter of token appears in days.
func containsAllLetters(days, token string) bool {
	for i := 0; i < len(token); i++ {
		if !strings.ContainsRune(days, rune(token[i])) {
			return false
		}
	}
	return true
}

// normalize lowercases and trims for case-insensitive identity, the same
// convention the prefs store uses.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// toggleString removes the case-insensitive match for v, or appends v
// verbatim when absent.
func toggleString(list []string, v string) []string {
	next, removed := removeString(list, v)
	if removed {
		return next
	}
	return append(list, v)
}

// removeString removes the first case-insensitive match for v.
func removeString(list []string, v string) ([]string, bool) {
	norm := normalize(v)
	for i, existing := range list {
		if normalize(existing) == norm {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

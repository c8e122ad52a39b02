package query

import (
	"sort"
	"strings"

	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
)

// SortDirection orders a sort key ascending or descending.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortKey identifies a sortable column.
type SortKey string

const (
	SortIndex      SortKey = "index"
	SortCourseCode SortKey = "courseCode"
	SortSection    SortKey = "section"
	SortFaculty    SortKey = "faculty"
	SortTime       SortKey = "time"
	SortRoom       SortKey = "room"
	SortPriority   SortKey = "priority"
)

// SortKeys lists the valid sort keys.
var SortKeys = []SortKey{
	SortIndex, SortCourseCode, SortSection, SortFaculty,
	SortTime, SortRoom, SortPriority,
}

// ValidSortKey reports whether key is sortable.
func ValidSortKey(key SortKey) bool {
	for _, k := range SortKeys {
		if k == key {
			return true
		}
	}
	return false
}

// SortSpec is one entry of the ordered sort list. Position in the list is
// tie-break precedence: the first spec is the primary sort.
type SortSpec struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// Sorts returns the active sort list, primary first.
func (e *Engine) Sorts() []SortSpec {
	return append([]SortSpec(nil), e.sorts...)
}

// ToggleSort cycles a column through the sort list:
// absent → ascending → descending → removed. A key appears at most once;
// toggling does not change its precedence position until removal.
func (e *Engine) ToggleSort(key SortKey) error {
	if !ValidSortKey(key) {
		return errors.NewInvalidRequest("unknown sort key: " + string(key))
	}

	for i, s := range e.sorts {
		if s.Key != key {
			continue
		}
		if s.Direction == Asc {
			e.sorts[i].Direction = Desc
		} else {
			e.sorts = append(e.sorts[:i:i], e.sorts[i+1:]...)
		}
		return nil
	}

	e.sorts = append(e.sorts, SortSpec{Key: key, Direction: Asc})
	return nil
}

// ClearSorts empties the sort list, restoring stable snapshot order.
func (e *Engine) ClearSorts() {
	e.sorts = nil
}

// SortIndex returns the 1-based precedence of a key in the sort list,
// or -1 when the key is not active.
func (e *Engine) SortIndex(key SortKey) int {
	for i, s := range e.sorts {
		if s.Key == key {
			return i + 1
		}
	}
	return -1
}

// SortDirectionFor returns the active direction for a key, with ok=false
// when the key is not in the sort list.
func (e *Engine) SortDirectionFor(key SortKey) (SortDirection, bool) {
	for _, s := range e.sorts {
		if s.Key == key {
			return s.Direction, true
		}
	}
	return "", false
}

// sortCourses orders the derived slice by the active sort list: the first
// non-zero comparison wins, negated for descending keys. With an empty
// list the input (snapshot) order is kept.
func (e *Engine) sortCourses(courses []course.Course) {
	if len(e.sorts) == 0 {
		return
	}
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		for _, spec := range e.sorts {
			cmp := e.compare(a, b, spec.Key)
			if cmp == 0 {
				continue
			}
			if spec.Direction == Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compare orders two courses on one key. Priority is numeric with missing
// entries as 0; time compares start minutes only; string columns compare
// case-insensitively; numeric columns by difference.
func (e *Engine) compare(a, b course.Course, key SortKey) int {
	switch key {
	case SortPriority:
		return e.prefs.GetPriority(a.ID) - e.prefs.GetPriority(b.ID)
	case SortTime:
		return a.Time.StartMinutes - b.Time.StartMinutes
	case SortIndex:
		return a.Index - b.Index
	case SortSection:
		return a.Section - b.Section
	case SortCourseCode:
		return strings.Compare(strings.ToLower(a.CourseCode), strings.ToLower(b.CourseCode))
	case SortFaculty:
		return strings.Compare(strings.ToLower(a.Faculty), strings.ToLower(b.Faculty))
	case SortRoom:
		return strings.Compare(strings.ToLower(a.Room), strings.ToLower(b.Room))
	default:
		return 0
	}
}

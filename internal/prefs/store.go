// Package prefs holds device-local personalization: starred sections,
// section priorities, saved course/faculty filters, and column visibility.
// State is read from the key-value store once at construction and written
// through on every mutation.
package prefs

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/nafisfuad/coursedeck/internal/errors"
)

// KeyValueStore is the durable storage capability the store is built on.
// The SQLite implementation lives in internal/db; tests may supply an
// in-memory one.
type KeyValueStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Storage keys for the five personalization entries.
const (
	KeyStarred        = "starred_sections"
	KeyPriorities     = "priorities"
	KeySavedCourses   = "saved_courses"
	KeySavedFaculties = "saved_faculties"
	KeyHiddenColumns  = "hidden_columns"
)

// Priority bounds enforced at the bump entry point. SetPriority itself is
// deliberately unclamped so imported documents round-trip unchanged.
const (
	MinPriority = -9
	MaxPriority = 99
)

// Column identifies one of the fixed table columns.
type Column string

const (
	ColumnIndex      Column = "index"
	ColumnCourseCode Column = "courseCode"
	ColumnSection    Column = "section"
	ColumnFaculty    Column = "faculty"
	ColumnTime       Column = "time"
	ColumnRoom       Column = "room"
	ColumnStar       Column = "star"
	ColumnPriority   Column = "priority"
)

// Columns is the fixed column enum in display order.
var Columns = []Column{
	ColumnIndex, ColumnCourseCode, ColumnSection, ColumnFaculty,
	ColumnTime, ColumnRoom, ColumnStar, ColumnPriority,
}

// defaultHiddenColumns is applied when nothing (or an empty set) is stored.
var defaultHiddenColumns = []Column{ColumnIndex}

// ValidColumn reports whether name is one of the fixed columns.
func ValidColumn(name string) bool {
	for _, c := range Columns {
		if Column(name) == c {
			return true
		}
	}
	return false
}

// Store holds the five personalization entries and writes each back to the
// key-value store synchronously on mutation. Not safe for concurrent use;
// callers on concurrent surfaces must serialize access.
type Store struct {
	kv KeyValueStore

	starred        map[string]bool
	priorities     map[string]int
	savedCourses   []string
	savedFaculties []string
	hidden         map[Column]bool
}

// NewStore reads all five entries from kv. A corrupt or unparsable stored
// value degrades to the empty collection; only storage-level read failures
// are returned as errors.
func NewStore(kv KeyValueStore) (*Store, error) {
	s := &Store{
		kv:         kv,
		starred:    make(map[string]bool),
		priorities: make(map[string]int),
		hidden:     make(map[Column]bool),
	}

	starred, err := loadStringList(kv, KeyStarred)
	if err != nil {
		return nil, err
	}
	for _, id := range starred {
		s.starred[id] = true
	}

	data, found, err := kv.Get(KeyPriorities)
	if err != nil {
		return nil, err
	}
	if found {
		var priorities map[string]int
		if json.Unmarshal(data, &priorities) == nil {
			s.priorities = priorities
		}
	}
	if s.priorities == nil {
		s.priorities = make(map[string]int)
	}

	if s.savedCourses, err = loadStringList(kv, KeySavedCourses); err != nil {
		return nil, err
	}
	if s.savedFaculties, err = loadStringList(kv, KeySavedFaculties); err != nil {
		return nil, err
	}

	hidden, err := loadStringList(kv, KeyHiddenColumns)
	if err != nil {
		return nil, err
	}
	s.setHiddenFromNames(hidden)

	return s, nil
}

// setHiddenFromNames installs the hidden-column set, filtering unknown
// names. An empty result falls back to the default hidden set, matching
// the reload behavior after a visibility reset. A set naming every column
// falls back the same way: at least one column must remain visible, and
// imported or hand-edited stored values go through here unchecked.
func (s *Store) setHiddenFromNames(names []string) {
	s.hidden = make(map[Column]bool)
	for _, name := range names {
		if ValidColumn(name) {
			s.hidden[Column(name)] = true
		}
	}
	if len(s.hidden) == 0 || len(s.hidden) == len(Columns) {
		s.hidden = make(map[Column]bool)
		for _, c := range defaultHiddenColumns {
			s.hidden[c] = true
		}
	}
}

// loadStringList reads a JSON string array, degrading to nil on any
// decode failure.
func loadStringList(kv KeyValueStore, key string) ([]string, error) {
	data, found, err := kv.Get(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var list []string
	if json.Unmarshal(data, &list) != nil {
		return nil, nil
	}
	return list, nil
}

// normalize lowercases and trims a string for case-insensitive identity.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Starred returns the starred section ids in sorted order.
func (s *Store) Starred() []string {
	ids := make([]string, 0, len(s.starred))
	for id := range s.starred {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsStarred reports whether the section id is starred.
func (s *Store) IsStarred(id string) bool {
	return s.starred[id]
}

// ToggleStar flips the star on a section id and persists the set.
// Returns the new starred state.
func (s *Store) ToggleStar(id string) (bool, error) {
	if s.starred[id] {
		delete(s.starred, id)
	} else {
		s.starred[id] = true
	}
	if err := s.kv.Set(KeyStarred, mustMarshal(s.Starred())); err != nil {
		return false, err
	}
	return s.starred[id], nil
}

// GetPriority returns the priority for a section id, 0 when absent.
func (s *Store) GetPriority(id string) int {
	return s.priorities[id]
}

// Priorities returns a copy of the sparse priority map.
func (s *Store) Priorities() map[string]int {
	out := make(map[string]int, len(s.priorities))
	for id, p := range s.priorities {
		out[id] = p
	}
	return out
}

// SetPriority stores a priority for a section id. Zero removes the entry,
// keeping the map sparse. The value is not range-checked here.
func (s *Store) SetPriority(id string, priority int) error {
	if priority == 0 {
		delete(s.priorities, id)
	} else {
		s.priorities[id] = priority
	}
	return s.persistPriorities()
}

// BumpPriority adjusts a section's priority by delta, clamped to
// [MinPriority, MaxPriority]. Returns the new value.
func (s *Store) BumpPriority(id string, delta int) (int, error) {
	p := s.priorities[id] + delta
	if p < MinPriority {
		p = MinPriority
	}
	if p > MaxPriority {
		p = MaxPriority
	}
	if err := s.SetPriority(id, p); err != nil {
		return 0, err
	}
	return p, nil
}

// SavedCourses returns the saved course codes in insertion order,
// first-seen casing preserved.
func (s *Store) SavedCourses() []string {
	return append([]string(nil), s.savedCourses...)
}

// SavedFaculties returns the saved faculty names in insertion order.
func (s *Store) SavedFaculties() []string {
	return append([]string(nil), s.savedFaculties...)
}

// ToggleSavedCourse adds or removes a course code from the saved set.
// Identity is case-insensitive; an existing entry is removed whatever its
// stored casing, and a new entry is stored verbatim.
func (s *Store) ToggleSavedCourse(code string) error {
	s.savedCourses = toggleString(s.savedCourses, code)
	return s.kv.Set(KeySavedCourses, mustMarshal(s.savedCourses))
}

// ToggleSavedFaculty adds or removes a faculty from the saved set.
func (s *Store) ToggleSavedFaculty(faculty string) error {
	s.savedFaculties = toggleString(s.savedFaculties, faculty)
	return s.kv.Set(KeySavedFaculties, mustMarshal(s.savedFaculties))
}

// RemoveSavedCourse removes a course code by case-insensitive match.
// Returns whether an entry was removed.
func (s *Store) RemoveSavedCourse(code string) (bool, error) {
	next, removed := removeString(s.savedCourses, code)
	if !removed {
		return false, nil
	}
	s.savedCourses = next
	return true, s.kv.Set(KeySavedCourses, mustMarshal(s.savedCourses))
}

// RemoveSavedFaculty removes a faculty by case-insensitive match.
func (s *Store) RemoveSavedFaculty(faculty string) (bool, error) {
	next, removed := removeString(s.savedFaculties, faculty)
	if !removed {
		return false, nil
	}
	s.savedFaculties = next
	return true, s.kv.Set(KeySavedFaculties, mustMarshal(s.savedFaculties))
}

// HiddenColumns returns the hidden column names in enum order.
func (s *Store) HiddenColumns() []Column {
	out := make([]Column, 0, len(s.hidden))
	for _, c := range Columns {
		if s.hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// IsColumnVisible reports whether a column is currently shown.
func (s *Store) IsColumnVisible(col Column) bool {
	return !s.hidden[col]
}

// ToggleColumn flips a column's visibility. Hiding the sole remaining
// visible column is refused (returns false, no state change).
func (s *Store) ToggleColumn(col Column) (bool, error) {
	if !ValidColumn(string(col)) {
		return false, errors.NewInvalidRequest("unknown column: " + string(col))
	}
	if !s.hidden[col] && len(s.hidden) == len(Columns)-1 {
		// Last visible column stays visible.
		return false, nil
	}
	if s.hidden[col] {
		delete(s.hidden, col)
	} else {
		s.hidden[col] = true
	}
	return true, s.persistHidden()
}

// ResetColumns clears the hidden set so every column is visible.
// The empty set is what gets persisted; a later load applies the default
// hidden set again.
func (s *Store) ResetColumns() error {
	s.hidden = make(map[Column]bool)
	return s.persistHidden()
}

// persistPriorities writes the sparse priority map, dropping the stored
// entry outright when the last priority is cleared.
func (s *Store) persistPriorities() error {
	if len(s.priorities) == 0 {
		return s.kv.Delete(KeyPriorities)
	}
	return s.kv.Set(KeyPriorities, mustMarshal(s.priorities))
}

func (s *Store) persistHidden() error {
	names := make([]string, 0, len(s.hidden))
	for _, c := range s.HiddenColumns() {
		names = append(names, string(c))
	}
	return s.kv.Set(KeyHiddenColumns, mustMarshal(names))
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

// mustMarshal serializes in-memory state for persistence. The inputs are
// plain string slices and maps, which cannot fail to marshal.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

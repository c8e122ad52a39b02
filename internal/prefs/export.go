package prefs

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nafisfuad/coursedeck/internal/errors"
)

// Document is the bulk backup form of the five personalization entries.
// Entry fields are pointers so a partial document can address any subset;
// unknown keys in an imported document are ignored.
type Document struct {
	ExportID   string `json:"export_id,omitempty"`
	ExportedAt int64  `json:"exported_at,omitempty"`

	Starred        *[]string       `json:"starred_sections"`
	Priorities     *map[string]int `json:"priorities"`
	SavedCourses   *[]string       `json:"saved_courses"`
	SavedFaculties *[]string       `json:"saved_faculties"`
	HiddenColumns  *[]string       `json:"hidden_columns"`
}

// Export serializes all five entries into one document.
func (s *Store) Export() *Document {
	starred := s.Starred()
	priorities := s.Priorities()
	courses := s.SavedCourses()
	faculties := s.SavedFaculties()

	hidden := make([]string, 0, len(s.hidden))
	for _, c := range s.HiddenColumns() {
		hidden = append(hidden, string(c))
	}

	return &Document{
		ExportID:       newExportID(),
		ExportedAt:     time.Now().Unix(),
		Starred:        &starred,
		Priorities:     &priorities,
		SavedCourses:   &courses,
		SavedFaculties: &faculties,
		HiddenColumns:  &hidden,
	}
}

// Import overwrites any subset of the five entries from a serialized
// document. A document that fails to parse is rejected wholesale and the
// prior state is left untouched; absent entries are left as they are.
func (s *Store) Import(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.NewImportInvalid(err)
	}

	if doc.Starred != nil {
		s.starred = make(map[string]bool, len(*doc.Starred))
		for _, id := range *doc.Starred {
			s.starred[id] = true
		}
		if err := s.kv.Set(KeyStarred, mustMarshal(s.Starred())); err != nil {
			return err
		}
	}

	if doc.Priorities != nil {
		s.priorities = make(map[string]int, len(*doc.Priorities))
		for id, p := range *doc.Priorities {
			if p != 0 {
				s.priorities[id] = p
			}
		}
		if err := s.persistPriorities(); err != nil {
			return err
		}
	}

	if doc.SavedCourses != nil {
		s.savedCourses = append([]string(nil), *doc.SavedCourses...)
		if err := s.kv.Set(KeySavedCourses, mustMarshal(s.savedCourses)); err != nil {
			return err
		}
	}

	if doc.SavedFaculties != nil {
		s.savedFaculties = append([]string(nil), *doc.SavedFaculties...)
		if err := s.kv.Set(KeySavedFaculties, mustMarshal(s.savedFaculties)); err != nil {
			return err
		}
	}

	if doc.HiddenColumns != nil {
		s.setHiddenFromNames(*doc.HiddenColumns)
		if err := s.persistHidden(); err != nil {
			return err
		}
	}

	return nil
}

// newExportID generates a ULID identifying one export document.
func newExportID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

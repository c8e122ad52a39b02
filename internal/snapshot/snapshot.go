// Package snapshot loads the scraped course listing exactly once per
// handle and memoizes the parsed result for the process lifetime.
package snapshot

import (
	"os"
	"sync"

	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
)

// Snapshot is a one-shot memoized loader for a course listing file.
// The first Load reads and parses the file; every later call returns the
// same result. A failed handle stays failed; retrying means constructing
// a fresh handle, independent of any prior attempt.
type Snapshot struct {
	path string

	once sync.Once
	data *course.CourseData
	err  error
}

// New creates a snapshot handle for the listing at path. Nothing is read
// until the first Load.
func New(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Load returns the parsed course data, reading the source file on the
// first call only. Safe for concurrent use.
func (s *Snapshot) Load() (*course.CourseData, error) {
	s.once.Do(func() {
		html, err := os.ReadFile(s.path)
		if err != nil {
			s.err = errors.NewLoadFailed(err)
			return
		}
		s.data = course.ParseCourses(string(html))
	})
	return s.data, s.err
}

// Path returns the source file location.
func (s *Snapshot) Path() string {
	return s.path
}

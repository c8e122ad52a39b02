package course

// Course represents a single offered course section, one row of the
// scraped listing table.
type Course struct {
	// ID uniquely identifies the section within a snapshot: "{courseCode}-{section}"
	ID string `json:"id"`

	// Index is the row number declared in the source table. It can differ
	// from the slice position when malformed rows are skipped.
	Index int `json:"index"`

	// CourseCode is the course code as printed (e.g. "CSE115").
	// Identity is case-insensitive; the original casing is preserved.
	CourseCode string `json:"courseCode"`

	// Section is the section number
	Section int `json:"section"`

	// Faculty is the faculty initials/name as printed
	Faculty string `json:"faculty"`

	// Time is the parsed schedule slot
	Time TimeSlot `json:"time"`

	// Room is the room/location label
	Room string `json:"room"`
}

// TimeSlot is the structured form of a raw schedule string.
// Immutable once constructed; an unparseable input yields the zero
// values with only Raw (and the TBA day marker) set.
type TimeSlot struct {
	// Raw is the original schedule string, trimmed
	Raw string `json:"raw"`

	// Days holds day tokens in input order ("Mon", "Tue", ...), or
	// ["TBA"] for empty/TBA input
	Days []string `json:"days"`

	// StartTime and EndTime are zero-padded 24-hour "HH:MM" strings,
	// empty when the input did not parse
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	// StartMinutes and EndMinutes are minutes since midnight, 0 when
	// the input did not parse
	StartMinutes int `json:"startMinutes"`
	EndMinutes   int `json:"endMinutes"`
}

// DataMeta is the derived aggregate over one parsed snapshot.
type DataMeta struct {
	// LastUpdated is when the snapshot was parsed (RFC 3339)
	LastUpdated string `json:"lastUpdated"`

	// Semester is the semester label from the page, "Unknown" if absent
	Semester string `json:"semester"`

	// TotalSections is the number of course records
	TotalSections int `json:"totalSections"`

	// UniqueCourses is the number of distinct course codes, case-insensitive
	UniqueCourses int `json:"uniqueCourses"`
}

// CourseData is the complete result of parsing one snapshot.
type CourseData struct {
	Meta    DataMeta `json:"meta"`
	Courses []Course `json:"courses"`
}

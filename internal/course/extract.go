package course

import (
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extraction regexes. The source is a loosely formatted static page, not
// well-formed XML, so the extractor works on anchored patterns rather
// than a DOM: first tbody, rows split on <tr>, cells between <td> tags.
var (
	tbodyRegex    = regexp.MustCompile(`(?is)<tbody>(.*?)</tbody>`)
	rowSplitRegex = regexp.MustCompile(`(?i)<tr>`)
	cellRegex     = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	tagRegex      = regexp.MustCompile(`<[^>]*>`)
	semesterRegex = regexp.MustCompile(`(?i)Offered Course List \((.*?)\)`)
	commentRegex  = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// minCells is the number of table cells a row must have to be considered
// a course row. The listing carries at least one trailing cell beyond the
// six that are mapped.
const minCells = 7

// ExtractSemester pulls the semester label out of the page heading,
// e.g. "Offered Course List (Summer 2024)". Returns "Unknown" if absent.
func ExtractSemester(html string) string {
	m := semesterRegex.FindStringSubmatch(html)
	if m == nil {
		return "Unknown"
	}
	return strings.TrimSpace(commentRegex.ReplaceAllString(m[1], ""))
}

// ParseCourses converts a scraped listing page into structured course data.
// It never fails: a missing tbody yields an empty result with a logged
// warning, and malformed rows are skipped silently.
func ParseCourses(html string) *CourseData {
	semester := ExtractSemester(html)

	normalized := strings.ReplaceAll(html, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	meta := DataMeta{
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Semester:    semester,
	}

	tbodyMatch := tbodyRegex.FindStringSubmatch(normalized)
	if tbodyMatch == nil {
		log.Printf("warning: could not find <tbody> in course listing HTML")
		return &CourseData{Meta: meta, Courses: []Course{}}
	}

	// The zero-th split is whatever precedes the first row marker.
	rows := rowSplitRegex.Split(tbodyMatch[1], -1)[1:]

	courses := []Course{}
	seen := make(map[string]bool)

	for _, row := range rows {
		cellMatches := cellRegex.FindAllStringSubmatch(row, -1)
		if len(cellMatches) < minCells {
			continue
		}

		cells := make([]string, len(cellMatches))
		for i, cm := range cellMatches {
			cells[i] = strings.TrimSpace(tagRegex.ReplaceAllString(cm[1], ""))
		}

		// Column 0 is the declared row number, printed as "12."
		index, err := strconv.Atoi(strings.TrimSuffix(cells[0], "."))
		if err != nil {
			continue
		}

		courseCode := cells[1]
		if courseCode == "" {
			continue
		}

		// Section may be non-numeric in malformed rows; it is carried
		// through as parsed without further validation.
		section, _ := strconv.Atoi(cells[2])

		seen[strings.ToLower(courseCode)] = true

		courses = append(courses, Course{
			ID:         courseCode + "-" + strconv.Itoa(section),
			Index:      index,
			CourseCode: courseCode,
			Section:    section,
			Faculty:    cells[3],
			Time:       ParseTimeSlot(cells[4]),
			Room:       cells[5],
		})
	}

	meta.TotalSections = len(courses)
	meta.UniqueCourses = len(seen)

	return &CourseData{Meta: meta, Courses: courses}
}

package course

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// slotRegex matches "MW 9:40 AM - 11:10 AM" style schedule strings:
// uppercase day letters, then a start and end clock time. Minutes are
// optional and default to "00"; the AM/PM suffix is case-insensitive.
var slotRegex = regexp.MustCompile(`^([A-Z]+)\s+(\d{1,2})(?::(\d{2}))?\s*((?i:AM|PM))\s*-\s*(\d{1,2})(?::(\d{2}))?\s*((?i:AM|PM))$`)

// displayRegex re-extracts the embedded time range from a raw slot for display.
var displayRegex = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*((?i:AM|PM))\s*-\s*(\d{1,2}):(\d{2})\s*((?i:AM|PM))`)

// leadingDaysRegex matches the leading day-letter run of a raw slot.
var leadingDaysRegex = regexp.MustCompile(`^([A-Z]+)`)

// dayNames maps source day letters to display tokens. Letters outside
// the map pass through unchanged.
var dayNames = map[byte]string{
	'M': "Mon", 'T': "Tue", 'W': "Wed", 'R': "Thu", 'A': "Fri", 'S': "Sun",
}

// ParseTimeSlot converts a raw schedule string into a TimeSlot.
// Empty or "TBA" input yields the TBA slot; anything that does not match
// the expected pattern degrades silently to a default slot that keeps Raw.
func ParseTimeSlot(raw string) TimeSlot {
	raw = strings.TrimSpace(raw)

	slot := TimeSlot{Raw: raw, Days: []string{}}

	if raw == "" || raw == "TBA" {
		slot.Days = []string{"TBA"}
		return slot
	}

	m := slotRegex.FindStringSubmatch(raw)
	if m == nil {
		return slot
	}

	daysStr := m[1]
	days := make([]string, 0, len(daysStr))
	for i := 0; i < len(daysStr); i++ {
		if name, ok := dayNames[daysStr[i]]; ok {
			days = append(days, name)
		} else {
			days = append(days, string(daysStr[i]))
		}
	}

	startTime := to24Hour(m[2], m[3], m[4])
	endTime := to24Hour(m[5], m[6], m[7])

	slot.Days = days
	slot.StartTime = startTime
	slot.EndTime = endTime
	slot.StartMinutes = toMinutes(startTime)
	slot.EndMinutes = toMinutes(endTime)
	return slot
}

// to24Hour converts an "H", "MM", "AM|PM" triple to zero-padded "HH:MM".
// Noon rule: 12 PM stays 12, 12 AM becomes 0, other PM hours add 12.
func to24Hour(hour, min, period string) string {
	h, _ := strconv.Atoi(hour)
	if strings.EqualFold(period, "PM") && h != 12 {
		h += 12
	}
	if strings.EqualFold(period, "AM") && h == 12 {
		h = 0
	}
	if min == "" {
		min = "00"
	}
	return fmt.Sprintf("%02d:%s", h, min)
}

// toMinutes converts an "HH:MM" string to minutes since midnight.
func toMinutes(hhmm string) int {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return h*60 + m
}

// TimeDisplay is the presentation form of a TimeSlot.
type TimeDisplay struct {
	Days   string `json:"days"`
	Timing string `json:"timing"`
}

// FormatTimeDisplay renders a slot as "MW" / "9:40 - 11:10 AM".
// Both endpoints are labeled with the end time's AM/PM suffix; this is a
// display shorthand carried over from the source listing, not a claim
// that both endpoints share a period.
func FormatTimeDisplay(slot TimeSlot) TimeDisplay {
	if slot.Raw == "" || containsTBA(slot.Days) {
		return TimeDisplay{Days: "TBA"}
	}

	days := ""
	if m := leadingDaysRegex.FindStringSubmatch(slot.Raw); m != nil {
		days = m[1]
	}

	m := displayRegex.FindStringSubmatch(slot.Raw)
	if m == nil {
		// No embedded time range: show whatever follows the day letters.
		timing := strings.TrimSpace(leadingDaysRegex.ReplaceAllString(slot.Raw, ""))
		return TimeDisplay{Days: days, Timing: timing}
	}

	startH, _ := strconv.Atoi(m[1])
	endH, _ := strconv.Atoi(m[4])
	timing := fmt.Sprintf("%d:%s - %d:%s %s", startH, m[2], endH, m[5], strings.ToUpper(m[6]))

	return TimeDisplay{Days: days, Timing: timing}
}

func containsTBA(days []string) bool {
	for _, d := range days {
		if d == "TBA" {
			return true
		}
	}
	return false
}

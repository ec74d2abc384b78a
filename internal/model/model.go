// Package model holds the calendar document types passed between the
// table, event and ics packages.
package model

// Row is the ordered cell text of one table row. Only the first two cells
// (date, section label) carry meaning for the feed.
type Row []string

// NormalizedDate is a compact YYYYMMDD date token as used in DATE values.
type NormalizedDate string

// EventStyle selects how an event's bounds are rendered.
type EventStyle string

const (
	// StyleAllDay renders DTSTART/DTEND as VALUE=DATE bounds.
	StyleAllDay EventStyle = "all_day"
	// StyleTimed renders a fixed 09:00-12:00 local busy block.
	StyleTimed EventStyle = "timed"
)

// Valid reports whether s is one of the known styles.
func (s EventStyle) Valid() bool {
	return s == StyleAllDay || s == StyleTimed
}

// EventRecord is a single calendar event derived from one data row.
// Start and End are always the same calendar day.
type EventRecord struct {
	UID       string
	Timestamp string // DTSTAMP value, synthetic
	Summary   string

	Start NormalizedDate
	End   NormalizedDate

	Style EventStyle
}

// TimezoneRule describes a named zone with a single STANDARD transition.
type TimezoneRule struct {
	TZID       string
	DtStart    string
	OffsetFrom string
	OffsetTo   string
}

// CalendarDocument is the full feed before serialization.
type CalendarDocument struct {
	Version   string
	ProductID string
	Timezone  TimezoneRule
	Events    []EventRecord
}

const (
	CalendarVersion = "2.0"
	ProductID       = "steinbock-kalender"
	ViennaTZID      = "Europe/Vienna"
)

// ViennaTimezone returns the fixed VTIMEZONE published with every feed.
func ViennaTimezone() TimezoneRule {
	return TimezoneRule{
		TZID:       ViennaTZID,
		DtStart:    "19961027T030000",
		OffsetFrom: "+0100",
		OffsetTo:   "+0200",
	}
}

// Package event turns extracted table rows into calendar event records.
package event

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"steinbockcal/internal/model"
)

const (
	// stampSuffix is the synthetic time-of-day appended to the event date
	// to form DTSTAMP.
	stampSuffix = "T124650Z"

	summaryPrefix = "Steinbock schraubt: "
)

// RowError reports a data row missing one of its required cells.
type RowError struct {
	Row     int    // position within the table, header is 0
	Missing string // "date" or "section"
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s not in table", e.Row, e.Missing)
}

// Logger is the subset of the application logger the builder needs.
type Logger interface {
	Debug(msg string, kv ...any)
}

// NormalizeDate turns "DD.MM.YYYY" into "YYYYMMDD" by reversing the dot
// separated segments. The segments are not validated.
func NormalizeDate(raw string) model.NormalizedDate {
	parts := strings.Split(raw, ".")
	slices.Reverse(parts)
	return model.NormalizedDate(strings.Join(parts, ""))
}

// BuildUID concatenates timestamp and label and drops every whitespace rune.
func BuildUID(timestamp, label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, timestamp+label)
}

// Builder maps data rows onto event records using a fixed style policy.
type Builder struct {
	Style  model.EventStyle
	Logger Logger
}

// Build converts the row at index into an EventRecord.
func (b Builder) Build(index int, row model.Row) (model.EventRecord, error) {
	if len(row) < 1 {
		return model.EventRecord{}, &RowError{Row: index, Missing: "date"}
	}
	if len(row) < 2 {
		return model.EventRecord{}, &RowError{Row: index, Missing: "section"}
	}
	rawDate, section := row[0], row[1]

	date := NormalizeDate(rawDate)
	stamp := string(date) + stampSuffix

	style := b.Style
	if style == "" {
		style = model.StyleAllDay
	}

	if b.Logger != nil {
		b.Logger.Debug("row mapped", "row", index, "date", rawDate, "section", section)
	}

	return model.EventRecord{
		UID:       BuildUID(stamp, section),
		Timestamp: stamp,
		Summary:   summaryPrefix + section,
		Start:     date,
		End:       date,
		Style:     style,
	}, nil
}

package ics

import (
	"errors"
	"fmt"

	ical "github.com/arran4/golang-ical"

	"steinbockcal/internal/model"
)

// Fixed local hours of the timed event variant.
const (
	timedStart = "T090000"
	timedEnd   = "T120000"
)

const (
	propTzOffsetFrom ical.ComponentProperty = "TZOFFSETFROM"
	propTzOffsetTo   ical.ComponentProperty = "TZOFFSETTO"
	propBusyStatus   ical.ComponentProperty = "X-MICROSOFT-CDO-BUSYSTATUS"
)

// ErrUnknownStyle is returned for an EventRecord whose style is neither
// all-day nor timed.
var ErrUnknownStyle = errors.New("unknown event style")

// Serialize renders doc as RFC 5545 text. It reads no clock, so equal
// documents always serialize to identical text. The document is not
// validated.
func Serialize(doc model.CalendarDocument) (string, error) {
	cal := ical.NewCalendar()
	cal.SetVersion(doc.Version)
	cal.SetProductId(doc.ProductID)

	tz := &ical.VTimezone{}
	tz.SetProperty(ical.ComponentPropertyTzid, doc.Timezone.TZID)
	cal.Components = append(cal.Components, tz)

	std := &ical.Standard{}
	std.SetProperty(ical.ComponentPropertyDtStart, doc.Timezone.DtStart)
	std.SetProperty(propTzOffsetFrom, doc.Timezone.OffsetFrom)
	std.SetProperty(propTzOffsetTo, doc.Timezone.OffsetTo)
	tz.Components = append(tz.Components, std)

	for i, rec := range doc.Events {
		ev := cal.AddEvent(rec.UID)
		ev.SetProperty(ical.ComponentPropertyDtstamp, rec.Timestamp)
		ev.SetSummary(rec.Summary)

		switch rec.Style {
		case model.StyleAllDay, "":
			ev.SetProperty(ical.ComponentPropertyDtStart, string(rec.Start), param(ical.ParameterValue, "DATE"))
			ev.SetProperty(ical.ComponentPropertyDtEnd, string(rec.End), param(ical.ParameterValue, "DATE"))
		case model.StyleTimed:
			ev.SetProperty(ical.ComponentPropertyDtStart, string(rec.Start)+timedStart, param(ical.ParameterTzid, doc.Timezone.TZID))
			ev.SetProperty(ical.ComponentPropertyDtEnd, string(rec.End)+timedEnd, param(ical.ParameterTzid, doc.Timezone.TZID))
			ev.SetProperty(propBusyStatus, "BUSY")
		default:
			return "", fmt.Errorf("event %d (%s): %w %q", i, rec.UID, ErrUnknownStyle, rec.Style)
		}
	}

	// RFC 5545 content lines end in CRLF.
	return cal.Serialize(ical.WithNewLineWindows), nil
}

func param(key ical.Parameter, value string) ical.PropertyParameter {
	return &ical.KeyValues{Key: string(key), Value: []string{value}}
}

package ics

import (
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"
)

// InspectedEvent is the read-back view of one VEVENT.
type InspectedEvent struct {
	UID     string
	Summary string
	Start   string
	End     string
	AllDay  bool
}

// Inspection summarizes a serialized feed as a calendar client would see it.
type Inspection struct {
	Version   string
	ProductID string
	Timezones []string
	Events    []InspectedEvent
}

// Inspect parses a serialized feed back with golang-ical. It is used by the
// feed check to confirm the published document is readable.
func Inspect(text string) (Inspection, error) {
	var out Inspection
	if strings.TrimSpace(text) == "" {
		return out, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(strings.NewReader(text))
	if err != nil {
		return out, err
	}

	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyVersion):
			out.Version = p.Value
		case string(ical.PropertyProductId):
			out.ProductID = p.Value
		}
	}

	for _, comp := range cal.Components {
		tz, ok := comp.(*ical.VTimezone)
		if !ok {
			continue
		}
		if p := tz.GetProperty(ical.ComponentPropertyTzid); p != nil {
			out.Timezones = append(out.Timezones, p.Value)
		}
	}

	for _, ve := range cal.Events() {
		out.Events = append(out.Events, inspectEvent(ve))
	}

	return out, nil
}

func inspectEvent(ve *ical.VEvent) InspectedEvent {
	var ev InspectedEvent
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		ev.Start = p.Value
		// VALUE=DATE or no 'T' in the value -> all-day
		if vs, ok := p.ICalParameters[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			ev.AllDay = true
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		ev.End = p.Value
	}
	return ev
}

// Package export renders resolved opening hours as iCalendar documents.
package export

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

const (
	productID   = "-//City of Helsinki//Hauki opening hours//EN"
	uidDomain   = "hauki"
	localFormat = "20060102T150405"
)

// now stamps DTSTAMP on every event.
var now = time.Now

// WriteICS writes one VEVENT per element of days. Timed elements are
// anchored in the resource timezone; elements with no times or marked
// full day become all-day events.
func WriteICS(w io.Writer, resource persistence.Resource, days hours.OpeningHours) error {
	loc, err := time.LoadLocation(resource.Timezone)
	if err != nil {
		return fmt.Errorf("export: timezone %q of resource %s: %w", resource.Timezone, resource.ID, err)
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(resource.Name)
	cal.SetXWRTimezone(loc.String())

	stamp := now().UTC()
	for _, day := range days {
		for i, el := range day.Elements {
			event := cal.AddEvent(EventUID(resource.ID, day.Date, i))
			event.SetDtStampTime(stamp)
			event.SetSummary(summary(el))
			if el.Description != "" {
				event.SetDescription(el.Description)
			}
			if resource.Address != "" {
				event.SetLocation(resource.Address)
			}
			if allDay(el) {
				event.SetAllDayStartAt(day.Date.In(time.UTC))
				event.SetAllDayEndAt(day.Date.AddDays(1).In(time.UTC))
				continue
			}
			iv := el.IntervalOn(day.Date, loc)
			tzid := &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{loc.String()}}
			event.SetProperty(ical.ComponentPropertyDtStart, iv.Start.Format(localFormat), tzid)
			event.SetProperty(ical.ComponentPropertyDtEnd, iv.End.Format(localFormat), tzid)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("export: write calendar: %w", err)
	}
	return nil
}

// EventUID is stable across exports so calendar clients update events in
// place.
func EventUID(resourceID string, d civil.Date, index int) string {
	return fmt.Sprintf("%s-%s-%d@%s", resourceID, d, index, uidDomain)
}

func allDay(el hours.TimeElement) bool {
	return el.FullDay || (el.StartTime == nil && el.EndTime == nil)
}

func summary(el hours.TimeElement) string {
	if el.Name == "" {
		return el.State.Label()
	}
	return el.State.Label() + " (" + el.Name + ")"
}

package testfixtures

import (
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// Date returns a pointer to the given calendar date.
func Date(year int, month time.Month, day int) *civil.Date {
	d := civil.Date{Year: year, Month: month, Day: day}
	return &d
}

// TimeOfDay returns a pointer to the given time of day.
func TimeOfDay(hour, minute int) *civil.Time {
	t := civil.Time{Hour: hour, Minute: minute}
	return &t
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// ResourceOption customises a resource fixture.
type ResourceOption func(*persistence.Resource)

// NewResource returns a public unit in Europe/Helsinki.
func NewResource(id string, opts ...ResourceOption) persistence.Resource {
	resource := persistence.Resource{
		ID:           id,
		Name:         "Resource " + id,
		ResourceType: hours.ResourceTypeUnit,
		Timezone:     "Europe/Helsinki",
		IsPublic:     true,
	}
	for _, opt := range opts {
		opt(&resource)
	}
	return resource
}

// WithResourceType sets the resource type.
func WithResourceType(kind hours.ResourceType) ResourceOption {
	return func(r *persistence.Resource) { r.ResourceType = kind }
}

// WithTimezone sets the resource timezone.
func WithTimezone(zone string) ResourceOption {
	return func(r *persistence.Resource) { r.Timezone = zone }
}

// Private marks the resource non-public.
func Private() ResourceOption {
	return func(r *persistence.Resource) { r.IsPublic = false }
}

// WithOrganization sets the owning organization.
func WithOrganization(org string) ResourceOption {
	return func(r *persistence.Resource) { r.Organization = org }
}

// WithResourceOrigin adds an origin link.
func WithResourceOrigin(dataSourceID, originID string) ResourceOption {
	return func(r *persistence.Resource) {
		r.Origins = append(r.Origins, persistence.Origin{DataSourceID: dataSourceID, OriginID: originID})
	}
}

// PeriodOption customises a period fixture.
type PeriodOption func(*persistence.DatePeriod)

// NewPeriod returns an unbounded baseline period without groups. Its
// resource state is undefined so the groups decide the day's state.
func NewPeriod(id, resourceID string, opts ...PeriodOption) persistence.DatePeriod {
	period := persistence.DatePeriod{DatePeriod: hours.DatePeriod{
		ID:            id,
		ResourceID:    resourceID,
		Name:          "Period " + id,
		ResourceState: hours.StateUndefined,
	}}
	for _, opt := range opts {
		opt(&period)
	}
	return period
}

// WithDates bounds the period. Either side may be nil.
func WithDates(start, end *civil.Date) PeriodOption {
	return func(p *persistence.DatePeriod) {
		p.StartDate = start
		p.EndDate = end
	}
}

// WithState sets the period level resource state.
func WithState(state hours.State) PeriodOption {
	return func(p *persistence.DatePeriod) { p.ResourceState = state }
}

// WithName sets the period name.
func WithName(name string) PeriodOption {
	return func(p *persistence.DatePeriod) { p.Name = name }
}

// AsOverride marks the period as an override.
func AsOverride() PeriodOption {
	return func(p *persistence.DatePeriod) { p.Override = true }
}

// WithPeriodOrigin adds an origin link.
func WithPeriodOrigin(dataSourceID, originID string) PeriodOption {
	return func(p *persistence.DatePeriod) {
		p.Origins = append(p.Origins, persistence.Origin{DataSourceID: dataSourceID, OriginID: originID})
	}
}

// WithGroup appends a group holding the given spans and rules. Group, span
// and rule IDs are left empty for the service to assign.
func WithGroup(spans []hours.TimeSpan, rules ...recurrence.Rule) PeriodOption {
	return func(p *persistence.DatePeriod) {
		p.Groups = append(p.Groups, hours.TimeSpanGroup{TimeSpans: spans, Rules: rules})
	}
}

// Span returns an open span between two times of day on the given weekdays.
func Span(startHour, endHour int, weekdays ...hours.Weekday) hours.TimeSpan {
	return hours.TimeSpan{
		StartTime:        TimeOfDay(startHour, 0),
		EndTime:          TimeOfDay(endHour, 0),
		EndTimeOnNextDay: hours.DeriveEndTimeOnNextDay(TimeOfDay(startHour, 0), TimeOfDay(endHour, 0)),
		Weekdays:         weekdays,
		ResourceState:    hours.StateOpen,
	}
}

// ClosedAllDay returns a full day closed span on the given weekdays.
func ClosedAllDay(weekdays ...hours.Weekday) hours.TimeSpan {
	return hours.TimeSpan{FullDay: true, Weekdays: weekdays, ResourceState: hours.StateClosed}
}

// Rule returns a rule selecting the ordinal-th subject within context.
func Rule(context recurrence.Context, subject recurrence.Subject, start int) recurrence.Rule {
	return recurrence.Rule{Context: context, Subject: subject, Start: Int(start)}
}

package importer

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// ChangeKind says what happened to a child of a reconciled record.
type ChangeKind string

const (
	ChildAdded   ChangeKind = "added"
	ChildRemoved ChangeKind = "removed"
	ChildUpdated ChangeKind = "updated"
)

// ChildChange is one added, removed or updated group, span or rule.
type ChildChange struct {
	Path string
	Kind ChangeKind
}

// Diff lists what an incoming record changes on the stored one.
type Diff struct {
	Fields   []string
	Children []ChildChange
}

// Empty reports whether the incoming record matches the stored one.
func (d Diff) Empty() bool {
	return len(d.Fields) == 0 && len(d.Children) == 0
}

// Changes flattens the diff for logging.
func (d Diff) Changes() []string {
	out := append([]string(nil), d.Fields...)
	for _, c := range d.Children {
		out = append(out, c.Path+" "+string(c.Kind))
	}
	return out
}

func (d *Diff) field(name string, changed bool) {
	if changed {
		d.Fields = append(d.Fields, name)
	}
}

func (d *Diff) child(path string, kind ChangeKind) {
	d.Children = append(d.Children, ChildChange{Path: path, Kind: kind})
}

// ReconcileResource compares the editable fields of two resources.
func ReconcileResource(existing, incoming persistence.Resource) Diff {
	var d Diff
	d.field("name", existing.Name != incoming.Name)
	d.field("description", existing.Description != incoming.Description)
	d.field("address", existing.Address != incoming.Address)
	d.field("resource_type", existing.ResourceType != incoming.ResourceType)
	d.field("organization", existing.Organization != incoming.Organization)
	d.field("timezone", existing.Timezone != incoming.Timezone)
	d.field("is_public", existing.IsPublic != incoming.IsPublic)
	d.field("origins", !sameOrigins(existing.Origins, incoming.Origins))
	return d
}

// ReconcilePeriod compares two period trees. Groups are matched by
// position, and spans and rules by position within their group.
func ReconcilePeriod(existing, incoming persistence.DatePeriod) Diff {
	var d Diff
	d.field("resource", existing.ResourceID != incoming.ResourceID)
	d.field("name", existing.Name != incoming.Name)
	d.field("description", existing.Description != incoming.Description)
	d.field("start_date", !sameDate(existing.StartDate, incoming.StartDate))
	d.field("end_date", !sameDate(existing.EndDate, incoming.EndDate))
	d.field("resource_state", existing.ResourceState != incoming.ResourceState)
	d.field("override", existing.Override != incoming.Override)
	d.field("origins", !sameOrigins(existing.Origins, incoming.Origins))

	for gi := 0; gi < max(len(existing.Groups), len(incoming.Groups)); gi++ {
		path := fmt.Sprintf("time_span_groups[%d]", gi)
		switch {
		case gi >= len(incoming.Groups):
			d.child(path, ChildRemoved)
		case gi >= len(existing.Groups):
			d.child(path, ChildAdded)
		default:
			reconcileGroup(&d, path, existing.Groups[gi], incoming.Groups[gi])
		}
	}
	return d
}

func reconcileGroup(d *Diff, path string, existing, incoming hours.TimeSpanGroup) {
	for i := 0; i < max(len(existing.TimeSpans), len(incoming.TimeSpans)); i++ {
		spanPath := fmt.Sprintf("%s.time_spans[%d]", path, i)
		switch {
		case i >= len(incoming.TimeSpans):
			d.child(spanPath, ChildRemoved)
		case i >= len(existing.TimeSpans):
			d.child(spanPath, ChildAdded)
		case !sameSpan(existing.TimeSpans[i], incoming.TimeSpans[i]):
			d.child(spanPath, ChildUpdated)
		}
	}
	for i := 0; i < max(len(existing.Rules), len(incoming.Rules)); i++ {
		rulePath := fmt.Sprintf("%s.rules[%d]", path, i)
		switch {
		case i >= len(incoming.Rules):
			d.child(rulePath, ChildRemoved)
		case i >= len(existing.Rules):
			d.child(rulePath, ChildAdded)
		case !sameRule(existing.Rules[i], incoming.Rules[i]):
			d.child(rulePath, ChildUpdated)
		}
	}
}

// adoptIdentifiers copies the stored identifiers onto the matching
// positions of incoming so unchanged children keep their IDs.
func adoptIdentifiers(existing persistence.DatePeriod, incoming *persistence.DatePeriod) {
	incoming.ID = existing.ID
	for gi := range incoming.Groups {
		if gi >= len(existing.Groups) {
			return
		}
		eg := existing.Groups[gi]
		ig := &incoming.Groups[gi]
		ig.ID = eg.ID
		for si := range ig.TimeSpans {
			if si < len(eg.TimeSpans) {
				ig.TimeSpans[si].ID = eg.TimeSpans[si].ID
			}
		}
		for ri := range ig.Rules {
			if ri < len(eg.Rules) {
				ig.Rules[ri].ID = eg.Rules[ri].ID
			}
		}
	}
}

func sameSpan(a, b hours.TimeSpan) bool {
	return a.Name == b.Name &&
		a.Description == b.Description &&
		sameTime(a.StartTime, b.StartTime) &&
		sameTime(a.EndTime, b.EndTime) &&
		a.EndTimeOnNextDay == b.EndTimeOnNextDay &&
		a.FullDay == b.FullDay &&
		reflect.DeepEqual(normalizeWeekdays(a.Weekdays), normalizeWeekdays(b.Weekdays)) &&
		a.ResourceState == b.ResourceState
}

func sameRule(a, b recurrence.Rule) bool {
	return a.Name == b.Name &&
		a.Description == b.Description &&
		a.Context == b.Context &&
		a.Subject == b.Subject &&
		sameInt(a.Start, b.Start) &&
		sameInt(a.FrequencyOrdinal, b.FrequencyOrdinal) &&
		a.FrequencyModifier == b.FrequencyModifier
}

func normalizeWeekdays(ws []hours.Weekday) []hours.Weekday {
	if len(ws) == 0 {
		return nil
	}
	out := append([]hours.Weekday(nil), ws...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sameOrigins(a, b []persistence.Origin) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(o persistence.Origin) string { return o.DataSourceID + "\x00" + o.OriginID }
	seen := make(map[string]int, len(a))
	for _, o := range a {
		seen[key(o)]++
	}
	for _, o := range b {
		if seen[key(o)] == 0 {
			return false
		}
		seen[key(o)]--
	}
	return true
}

func sameDate(a, b *civil.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *civil.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

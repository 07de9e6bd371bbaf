package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

func date(year int, month time.Month, day int) *civil.Date {
	d := civil.Date{Year: year, Month: month, Day: day}
	return &d
}

func clockTime(hour, minute int) *civil.Time {
	return &civil.Time{Hour: hour, Minute: minute}
}

func samplePeriod(id, resourceID string, start, end *civil.Date) persistence.DatePeriod {
	two := 2
	return persistence.DatePeriod{
		DatePeriod: hours.DatePeriod{
			ID:            id,
			ResourceID:    resourceID,
			Name:          "Summer",
			StartDate:     start,
			EndDate:       end,
			ResourceState: hours.StateOpen,
			Groups: []hours.TimeSpanGroup{{
				ID: id + "-g1",
				TimeSpans: []hours.TimeSpan{
					{
						ID:            id + "-s1",
						StartTime:     clockTime(8, 0),
						EndTime:       clockTime(16, 30),
						Weekdays:      hours.BusinessDays(),
						ResourceState: hours.StateOpen,
					},
					{
						ID:               id + "-s2",
						StartTime:        clockTime(22, 0),
						EndTime:          clockTime(2, 0),
						EndTimeOnNextDay: true,
						Weekdays:         []hours.Weekday{hours.Saturday},
					},
				},
				Rules: []recurrence.Rule{{
					ID:                id + "-r1",
					Context:           recurrence.ContextMonth,
					Subject:           recurrence.SubjectMonday,
					FrequencyOrdinal:  &two,
					FrequencyModifier: recurrence.ModifierNone,
				}},
			}},
		},
	}
}

func TestDatePeriodRepository_SaveAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newTestStorage(t)
	seedDataSource(t, storage, "kirjastot")
	if err := storage.CreateResource(ctx, persistence.Resource{ID: "res-1"}); err != nil {
		t.Fatalf("CreateResource failed: %v", err)
	}

	period := samplePeriod("p1", "res-1", date(2020, time.June, 1), date(2020, time.August, 31))
	period.Origins = []persistence.Origin{{DataSourceID: "kirjastot", OriginID: "p-1"}}
	if err := storage.SavePeriod(ctx, period); err != nil {
		t.Fatalf("SavePeriod failed: %v", err)
	}

	got, err := storage.GetPeriod(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPeriod failed: %v", err)
	}
	if !reflect.DeepEqual(got.Groups, withGroupIDs(period.DatePeriod).Groups) {
		t.Fatalf("tree did not round trip:\n got %+v\nwant %+v", got.Groups, period.Groups)
	}
	if *got.StartDate != *period.StartDate || *got.EndDate != *period.EndDate || got.ResourceState != hours.StateOpen {
		t.Fatalf("unexpected period fields %+v", got.DatePeriod)
	}

	byOrigin, err := storage.GetPeriodByOrigin(ctx, persistence.Origin{DataSourceID: "kirjastot", OriginID: "p-1"})
	if err != nil || byOrigin.ID != "p1" {
		t.Fatalf("GetPeriodByOrigin returned %+v, %v", byOrigin, err)
	}
}

// withGroupIDs fills the parent references the repository sets on load.
func withGroupIDs(p hours.DatePeriod) hours.DatePeriod {
	groups := make([]hours.TimeSpanGroup, len(p.Groups))
	for i, g := range p.Groups {
		g.PeriodID = p.ID
		spans := make([]hours.TimeSpan, len(g.TimeSpans))
		for j, s := range g.TimeSpans {
			s.GroupID = g.ID
			if s.ResourceState == "" {
				s.ResourceState = hours.StateUndefined
			}
			spans[j] = s
		}
		rules := make([]recurrence.Rule, len(g.Rules))
		for j, r := range g.Rules {
			r.GroupID = g.ID
			rules[j] = r
		}
		g.TimeSpans, g.Rules = spans, rules
		groups[i] = g
	}
	p.Groups = groups
	return p
}

func TestDatePeriodRepository_SaveReplacesTree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newTestStorage(t)
	if err := storage.CreateResource(ctx, persistence.Resource{ID: "res-1"}); err != nil {
		t.Fatalf("CreateResource failed: %v", err)
	}

	period := samplePeriod("p1", "res-1", nil, nil)
	if err := storage.SavePeriod(ctx, period); err != nil {
		t.Fatalf("SavePeriod failed: %v", err)
	}
	first, _ := storage.GetPeriod(ctx, "p1")

	period.Name = "Renamed"
	period.Groups[0].TimeSpans = period.Groups[0].TimeSpans[:1]
	period.Groups[0].Rules = nil
	if err := storage.SavePeriod(ctx, period); err != nil {
		t.Fatalf("SavePeriod (update) failed: %v", err)
	}

	got, _ := storage.GetPeriod(ctx, "p1")
	if got.Name != "Renamed" || len(got.Groups) != 1 || len(got.Groups[0].TimeSpans) != 1 || len(got.Groups[0].Rules) != 0 {
		t.Fatalf("expected tree to be replaced, got %+v", got.DatePeriod)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected CreatedAt to be preserved, got %s and %s", first.CreatedAt, got.CreatedAt)
	}
	if got.StartDate != nil || got.EndDate != nil {
		t.Fatalf("expected unbounded dates to stay nil")
	}
}

func TestDatePeriodRepository_Constraints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newTestStorage(t)
	if err := storage.CreateResource(ctx, persistence.Resource{ID: "res-1"}); err != nil {
		t.Fatalf("CreateResource failed: %v", err)
	}

	inverted := samplePeriod("p1", "res-1", date(2020, time.June, 2), date(2020, time.June, 1))
	if err := storage.SavePeriod(ctx, inverted); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	if _, err := storage.GetPeriod(ctx, "p1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected failed save to roll back, got %v", err)
	}

	orphan := samplePeriod("p2", "missing", nil, nil)
	if err := storage.SavePeriod(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestDatePeriodRepository_ListPeriods(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newTestStorage(t)
	for _, id := range []string{"res-1", "res-2"} {
		if err := storage.CreateResource(ctx, persistence.Resource{ID: id}); err != nil {
			t.Fatalf("CreateResource failed: %v", err)
		}
	}

	periods := []persistence.DatePeriod{
		samplePeriod("spring", "res-1", date(2020, time.March, 1), date(2020, time.May, 31)),
		samplePeriod("always", "res-1", nil, nil),
		samplePeriod("summer", "res-1", date(2020, time.June, 1), date(2020, time.August, 31)),
		samplePeriod("from-july", "res-1", date(2020, time.July, 1), nil),
		samplePeriod("other", "res-2", nil, nil),
	}
	for _, p := range periods {
		if err := storage.SavePeriod(ctx, p); err != nil {
			t.Fatalf("SavePeriod %s: %v", p.ID, err)
		}
	}

	ids := func(ps []persistence.DatePeriod) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		return out
	}

	all, err := storage.ListPeriods(ctx, "res-1", persistence.PeriodFilter{})
	if err != nil {
		t.Fatalf("ListPeriods failed: %v", err)
	}
	if want := []string{"always", "spring", "summer", "from-july"}; !reflect.DeepEqual(ids(all), want) {
		t.Fatalf("expected %v, got %v", want, ids(all))
	}
	if len(all[1].Groups) != 1 || len(all[1].Groups[0].TimeSpans) != 2 {
		t.Fatalf("expected trees to be loaded, got %+v", all[1].Groups)
	}

	june, err := storage.ListPeriods(ctx, "res-1", persistence.PeriodFilter{
		StartDate: date(2020, time.June, 1),
		EndDate:   date(2020, time.June, 30),
	})
	if err != nil {
		t.Fatalf("ListPeriods failed: %v", err)
	}
	if want := []string{"always", "summer"}; !reflect.DeepEqual(ids(june), want) {
		t.Fatalf("expected %v, got %v", want, ids(june))
	}

	if err := storage.DeletePeriod(ctx, "always"); err != nil {
		t.Fatalf("DeletePeriod failed: %v", err)
	}
	june, _ = storage.ListPeriods(ctx, "res-1", persistence.PeriodFilter{
		StartDate: date(2020, time.June, 1),
		EndDate:   date(2020, time.June, 30),
	})
	if want := []string{"summer"}; !reflect.DeepEqual(ids(june), want) {
		t.Fatalf("expected %v after delete, got %v", want, ids(june))
	}
	if err := storage.DeletePeriod(ctx, "always"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDatePeriodRepository_OriginMovesToNewPeriod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newTestStorage(t)
	seedDataSource(t, storage, "kirkanta")
	if err := storage.CreateResource(ctx, persistence.Resource{ID: "res-1", Name: "Library"}); err != nil {
		t.Fatalf("CreateResource failed: %v", err)
	}

	origin := persistence.Origin{DataSourceID: "kirkanta", OriginID: "p-7"}
	first := samplePeriod("p1", "res-1", nil, nil)
	first.Origins = []persistence.Origin{origin}
	if err := storage.SavePeriod(ctx, first); err != nil {
		t.Fatalf("SavePeriod failed: %v", err)
	}
	if err := storage.DeletePeriod(ctx, "p1"); err != nil {
		t.Fatalf("DeletePeriod failed: %v", err)
	}

	second := samplePeriod("p2", "res-1", nil, nil)
	second.Origins = []persistence.Origin{origin}
	if err := storage.SavePeriod(ctx, second); err != nil {
		t.Fatalf("SavePeriod with reused origin failed: %v", err)
	}
	got, err := storage.GetPeriodByOrigin(ctx, origin)
	if err != nil {
		t.Fatalf("GetPeriodByOrigin failed: %v", err)
	}
	if got.ID != "p2" {
		t.Fatalf("expected origin to point at p2, got %s", got.ID)
	}
}

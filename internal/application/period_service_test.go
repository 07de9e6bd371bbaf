package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
	tf "github.com/City-of-Helsinki/hauki-sub000/internal/testfixtures"
)

func TestPeriodService_SavePeriodValidation(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.createResource(t, tf.NewResource("r1"))

	tests := []struct {
		name   string
		period persistence.DatePeriod
		field  string
	}{
		{
			name:   "missing resource",
			period: tf.NewPeriod("p1", ""),
			field:  "resource",
		},
		{
			name:   "unknown state",
			period: tf.NewPeriod("p1", "r1", tf.WithState("half_open")),
			field:  "resource_state",
		},
		{
			name:   "end before start",
			period: tf.NewPeriod("p1", "r1", tf.WithDates(tf.Date(2020, time.June, 2), tf.Date(2020, time.June, 1))),
			field:  "end_date",
		},
		{
			name:   "month in month rule",
			period: tf.NewPeriod("p1", "r1", tf.WithGroup(nil, tf.Rule(recurrence.ContextMonth, recurrence.SubjectMonth, 1))),
			field:  "time_span_groups[0].rules[0].subject",
		},
		{
			name:   "period context without start",
			period: tf.NewPeriod("p1", "r1", tf.WithGroup(nil, tf.Rule(recurrence.ContextPeriod, recurrence.SubjectDay, 1))),
			field:  "time_span_groups[0].rules[0].context",
		},
		{
			name:   "unknown weekday",
			period: tf.NewPeriod("p1", "r1", tf.WithGroup([]hours.TimeSpan{tf.Span(8, 16, hours.Weekday(8))})),
			field:  "time_span_groups[0].time_spans[0].weekdays",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.services.Periods.SavePeriod(context.Background(), tc.period)
			var vErr *application.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}

	if _, err := e.storage.GetPeriod(context.Background(), "p1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}

func TestPeriodService_SavePeriodGeneratesIdentifiers(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.createResource(t, tf.NewResource("r1"))

	// An end before the start without end_time_on_next_day is kept as
	// authored; only importers derive the flag when a source omits it.
	overnight := hours.TimeSpan{StartTime: tf.TimeOfDay(22, 0), EndTime: tf.TimeOfDay(2, 0), ResourceState: hours.StateOpen}
	saved := e.savePeriod(t, tf.NewPeriod("", "r1",
		tf.WithGroup([]hours.TimeSpan{overnight}, tf.Rule(recurrence.ContextYear, recurrence.SubjectWeek, 0)),
	))

	if saved.ID != "gen-1" {
		t.Fatalf("expected generated period id gen-1, got %q", saved.ID)
	}
	group := saved.Groups[0]
	if group.ID != "gen-2" || group.PeriodID != saved.ID {
		t.Fatalf("unexpected group identity %+v", group)
	}
	span := group.TimeSpans[0]
	if span.ID != "gen-3" || span.GroupID != group.ID {
		t.Fatalf("unexpected span identity %+v", span)
	}
	if span.EndTimeOnNextDay {
		t.Fatalf("expected the authored end_time_on_next_day to be stored as given")
	}
	if group.Rules[0].ID != "gen-4" || *group.Rules[0].Start != 0 {
		t.Fatalf("unexpected rule %+v", group.Rules[0])
	}
	if saved.CreatedAt.IsZero() {
		t.Fatalf("expected the stored timestamps to be returned")
	}
}

func TestPeriodService_SavePeriodUnknownResource(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	_, err := e.services.Periods.SavePeriod(context.Background(), tf.NewPeriod("p1", "missing"))
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPeriodService_MovingPeriodRecomputesBothResources(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.createResource(t, tf.NewResource("r1"))
	e.createResource(t, tf.NewResource("r2"))
	emptyHash := e.hashOf(t, "r1")

	period := e.savePeriod(t, tf.NewPeriod("p1", "r1", tf.WithState(hours.StateOpen)))
	withPeriod := e.hashOf(t, "r1")

	period.ResourceID = "r2"
	e.savePeriod(t, period)

	if got := e.hashOf(t, "r1"); got != emptyHash {
		t.Fatalf("expected the previous owner to lose the period, got %q", got)
	}
	if got := e.hashOf(t, "r2"); got != withPeriod {
		t.Fatalf("expected the new owner to gain the period, got %q", got)
	}
}

func TestPeriodService_CopyPeriodsToResource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t)
	for _, id := range []string{"r1", "r2", "r3"} {
		e.createResource(t, tf.NewResource(id))
	}
	e.seedDataSource(t, "kirkanta")
	e.savePeriod(t, tf.NewPeriod("p1", "r1",
		tf.WithDates(tf.Date(2020, time.June, 1), tf.Date(2020, time.August, 31)),
		tf.WithGroup([]hours.TimeSpan{tf.Span(10, 18)}, tf.Rule(recurrence.ContextMonth, recurrence.SubjectMonday, 1)),
		tf.WithPeriodOrigin("kirkanta", "summer-2020"),
	))
	e.savePeriod(t, tf.NewPeriod("p2", "r1", tf.WithState(hours.StateClosed)))
	e.savePeriod(t, tf.NewPeriod("old", "r2", tf.WithState(hours.StateOpen)))

	t.Run("rejects copying onto the source", func(t *testing.T) {
		err := e.services.Periods.CopyPeriodsToResource(ctx, "r1", []string{"r2", "r1"}, nil, false)
		if !errors.Is(err, application.ErrCopyToSelf) {
			t.Fatalf("expected ErrCopyToSelf, got %v", err)
		}
	})

	t.Run("requires a target", func(t *testing.T) {
		err := e.services.Periods.CopyPeriodsToResource(ctx, "r1", nil, nil, false)
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown period copies nothing", func(t *testing.T) {
		err := e.services.Periods.CopyPeriodsToResource(ctx, "r1", []string{"r3"}, []string{"p1", "missing"}, false)
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		periods, err := e.services.Periods.ListPeriods(ctx, "r3")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(periods) != 0 {
			t.Fatalf("expected no copies after a failed copy, got %d", len(periods))
		}
	})

	t.Run("copies selected periods", func(t *testing.T) {
		if err := e.services.Periods.CopyPeriodsToResource(ctx, "r1", []string{"r3"}, []string{"p1"}, false); err != nil {
			t.Fatalf("copy: %v", err)
		}
		periods, err := e.services.Periods.ListPeriods(ctx, "r3")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(periods) != 1 {
			t.Fatalf("expected one copy, got %d", len(periods))
		}
		copied := periods[0]
		if copied.ID == "p1" || copied.Groups[0].ID == "" || len(copied.Groups[0].Rules) != 1 {
			t.Fatalf("expected a deep copy under new identifiers, got %+v", copied.DatePeriod)
		}
		if len(copied.Origins) != 0 {
			t.Fatalf("expected origins to stay with the source, got %v", copied.Origins)
		}
	})

	t.Run("replace swaps the target periods", func(t *testing.T) {
		if err := e.services.Periods.CopyPeriodsToResource(ctx, "r1", []string{"r2"}, nil, true); err != nil {
			t.Fatalf("copy: %v", err)
		}
		periods, err := e.services.Periods.ListPeriods(ctx, "r2")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(periods) != 2 {
			t.Fatalf("expected the two source periods only, got %d", len(periods))
		}
		for _, p := range periods {
			if p.ID == "old" {
				t.Fatalf("expected the previous period to be removed")
			}
		}
		if e.hashOf(t, "r2") != e.hashOf(t, "r1") {
			t.Fatalf("expected identical trees to hash identically")
		}
	})
}

package hours

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

func TestDatePeriodsText(t *testing.T) {
	t.Parallel()

	special := DatePeriod{
		Name:          "Special hours",
		ResourceState: StateClosed,
		StartDate:     datePtr(day(2021, time.December, 27)),
		EndDate:       datePtr(day(2022, time.January, 2)),
		Override:      true,
	}
	regular := DatePeriod{
		Name:          "Regular opening hours",
		ResourceState: StateOpen,
		StartDate:     datePtr(day(2021, time.January, 1)),
		EndDate:       datePtr(day(2022, time.December, 31)),
		Groups: []TimeSpanGroup{
			{
				TimeSpans: []TimeSpan{
					openSpan(clock(10, 0), clock(14, 0), Sunday),
					openSpan(clock(9, 0), clock(17, 0), Monday, Tuesday, Thursday),
					openSpan(clock(9, 0), clock(19, 0), Friday, Saturday),
				},
				Rules: []recurrence.Rule{
					{Context: recurrence.ContextPeriod, Subject: recurrence.SubjectWeek, FrequencyModifier: recurrence.ModifierEven},
				},
			},
			{
				TimeSpans: []TimeSpan{
					openSpan(clock(8, 0), clock(16, 0), Monday, Tuesday),
					openSpan(clock(9, 0), clock(13, 0), Weekend()...),
				},
				Rules: []recurrence.Rule{
					{Context: recurrence.ContextPeriod, Subject: recurrence.SubjectMonth, FrequencyOrdinal: intPtr(2)},
					{Context: recurrence.ContextPeriod, Subject: recurrence.SubjectWeek, FrequencyModifier: recurrence.ModifierOdd},
				},
			},
		},
	}

	want := "\n" +
		"========================================\n" +
		"Regular opening hours\n" +
		"Date period: Jan. 1, 2021 - Dec. 31, 2022\n" +
		"Opening hours:\n" +
		"\n" +
		" Monday-Tuesday, Thursday 9 a.m.-5 p.m. Open\n" +
		" Friday-Saturday 9 a.m.-7 p.m. Open\n" +
		" Sunday 10 a.m.-2 p.m. Open\n" +
		"\n" +
		" In effect when every one of these match:\n" +
		" - On even weeks in the period\n" +
		"\n" +
		" ---------------------------------------\n" +
		"\n" +
		" Monday-Tuesday 8 a.m.-4 p.m. Open\n" +
		" Saturday-Sunday 9 a.m.-1 p.m. Open\n" +
		"\n" +
		" In effect when every one of these match:\n" +
		" - Every 2nd month in the period\n" +
		" - On odd weeks in the period\n" +
		"\n" +
		"========================================\n" +
		"Special hours\n" +
		"Date period: Dec. 27, 2021 - Jan. 2, 2022\n" +
		"Opening hours:\n" +
		"\n" +
		" Closed\n" +
		"\n" +
		"========================================\n"

	if got := DatePeriodsText([]DatePeriod{special, regular}); got != want {
		t.Fatalf("unexpected text\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestDatePeriodsText_Empty(t *testing.T) {
	t.Parallel()

	if got := DatePeriodsText(nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestDatePeriod_TextDates(t *testing.T) {
	t.Parallel()

	single := day(2021, time.May, 5)
	tests := []struct {
		name   string
		period DatePeriod
		want   string
	}{
		{"unbounded", DatePeriod{ResourceState: StateUndefined}, "Date period: Not specified\nOpening hours:\n\n\n"},
		{"single day", DatePeriod{StartDate: &single, EndDate: &single, ResourceState: StateClosed}, "Date period: May 5, 2021\nOpening hours:\n\n Closed\n"},
		{"open end", DatePeriod{StartDate: datePtr(day(2021, time.September, 3)), ResourceState: StateUndefined}, "Date period: Sept. 3, 2021 - \nOpening hours:\n\n\n"},
		{"with description", DatePeriod{Name: "Summer", Description: "Shorter hours", EndDate: datePtr(day(2021, time.August, 31)), ResourceState: StateSelfService}, "Summer\nShorter hours\nDate period:  - Aug. 31, 2021\nOpening hours:\n\n Self service\n"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.period.Text(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTimeSpan_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		span TimeSpan
		want string
	}{
		{TimeSpan{FullDay: true, ResourceState: StateClosed}, "Every day The whole day Closed"},
		{TimeSpan{StartTime: clock(9, 30), EndTime: clock(12, 0), Weekdays: []Weekday{Monday, Wednesday, Thursday, Friday, Sunday}}, "Monday, Wednesday-Friday, Sunday 9:30 a.m.-noon Open"},
		{TimeSpan{StartTime: clock(18, 0), EndTime: clock(0, 0), EndTimeOnNextDay: true, ResourceState: StateWithKey}, "Every day 6 p.m.-midnight With key"},
		{TimeSpan{EndTime: clock(0, 45)}, "Every day -12:45 a.m. Open"},
	}

	for _, tc := range tests {
		if got := tc.span.Text(StateOpen); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	cases := map[civil.Date]string{
		day(2021, time.March, 15):   "March 15, 2021",
		day(2021, time.June, 1):     "June 1, 2021",
		day(2021, time.February, 2): "Feb. 2, 2021",
		day(2020, time.July, 31):    "July 31, 2020",
	}
	for d, want := range cases {
		if got := FormatDate(d); got != want {
			t.Errorf("FormatDate(%s) = %q, want %q", d, got, want)
		}
	}
}

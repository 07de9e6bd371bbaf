package recurrence

import "testing"

func TestRule_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rule Rule
		want string
	}{
		{Rule{Context: ContextPeriod, Subject: SubjectWeek, FrequencyModifier: ModifierEven}, "On even weeks in the period"},
		{Rule{Context: ContextYear, Subject: SubjectWeek, FrequencyModifier: ModifierOdd}, "On odd weeks in every year"},
		{Rule{Context: ContextPeriod, Subject: SubjectMonth, Start: intPtr(1), FrequencyOrdinal: intPtr(2)}, "Every 2nd month in the period"},
		{Rule{Context: ContextMonth, Subject: SubjectDay, Start: intPtr(1)}, "1st day in every month"},
		{Rule{Context: ContextMonth, Subject: SubjectFriday, Start: intPtr(-1)}, "Last friday in every month"},
		{Rule{Context: ContextYear, Subject: SubjectWeek, Start: intPtr(3), FrequencyOrdinal: intPtr(1)}, "Every week in every year starting from the 3rd week"},
		{Rule{Context: ContextPeriod, Subject: SubjectThursday, Start: intPtr(2), FrequencyOrdinal: intPtr(3)}, "Every 3rd thursday in the period starting from the 2nd thu"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			if got := tc.rule.Text(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRule_HashInputIgnoresNameAndDescription(t *testing.T) {
	t.Parallel()

	rule := Rule{Context: ContextPeriod, Subject: SubjectWeek, FrequencyOrdinal: intPtr(2)}
	want := "[RULE:period|week|*|2|*]"
	if got := rule.HashInput(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	rule.Name = "Every other week"
	rule.Description = "Alternating"
	if got := rule.HashInput(); got != want {
		t.Fatalf("expected name and description to be ignored, got %q", got)
	}
}

func TestOrdinal(t *testing.T) {
	t.Parallel()

	cases := map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd", 101: "101st", 111: "111th"}
	for n, want := range cases {
		if got := Ordinal(n); got != want {
			t.Errorf("Ordinal(%d) = %q, want %q", n, got, want)
		}
	}
}

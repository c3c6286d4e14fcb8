package expiry

import (
	"testing"
	"time"
)

func TestParseSchedule_Valid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"every hour", "0 * * * *"},
		{"every 15 minutes", "*/15 * * * *"},
		{"nightly", "30 2 * * *"},
		{"hourly descriptor", "@hourly"},
		{"daily descriptor", "@daily"},
		{"interval descriptor", "@every 10m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := ParseSchedule(tt.expr)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) returned error: %v", tt.expr, err)
			}
			if sched == nil {
				t.Fatalf("ParseSchedule(%q) returned nil schedule", tt.expr)
			}
		})
	}
}

func TestParseSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"four fields", "* * * *"},
		{"seconds field", "0 * * * * *"},
		{"minute 60", "60 * * * *"},
		{"unknown descriptor", "@fortnightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSchedule(tt.expr); err == nil {
				t.Errorf("ParseSchedule(%q) should return error", tt.expr)
			}
		})
	}
}

func TestSchedule_NextIsUTC(t *testing.T) {
	sched, err := ParseSchedule("0 3 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}

	// 01:00 in UTC+05:30 is 19:30 UTC the previous day.
	ist := time.FixedZone("IST", 5*60*60+30*60)
	after := time.Date(2024, 6, 15, 1, 0, 0, 0, ist)

	next := sched.Next(after)
	want := time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", after, next, want)
	}
	if next.Location() != time.UTC {
		t.Errorf("Next location = %v, want UTC", next.Location())
	}
}

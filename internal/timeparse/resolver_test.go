package timeparse

import (
	"testing"
	"time"
)

// Wednesday, March 12 2025, 09:15 local.
var ref = time.Date(2025, time.March, 12, 9, 15, 0, 0, time.UTC)

func TestResolveDatePhrases(t *testing.T) {
	tests := []struct {
		name    string
		phrase  string
		wantDay time.Time
	}{
		{"today keeps date", "today works", ref},
		{"tomorrow adds a day", "Tomorrow", ref.AddDate(0, 0, 1)},
		{"next friday", "this Friday please", time.Date(2025, time.March, 14, 9, 15, 0, 0, time.UTC)},
		{"weekday rolls past current day", "wednesday", time.Date(2025, time.March, 19, 9, 15, 0, 0, time.UTC)},
		{"sunday wraps the week", "sunday", time.Date(2025, time.March, 16, 9, 15, 0, 0, time.UTC)},
		{"gibberish keeps date", "whenever suits", ref},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.phrase, "", ref)
			if !ok {
				t.Fatal("expected a resolution")
			}
			if !got.Equal(tt.wantDay) {
				t.Fatalf("got %s, want %s", got, tt.wantDay)
			}
		})
	}
}

func TestWeekdayNeverReturnsCurrentDay(t *testing.T) {
	if ref.Weekday() != time.Wednesday {
		t.Fatal("reference date must be a Wednesday")
	}
	got, ok := Resolve("wednesday", "", ref)
	if !ok {
		t.Fatal("expected a resolution")
	}
	if got.Day() == ref.Day() {
		t.Fatalf("named weekday resolved to the reference day itself: %s", got)
	}
	if want := ref.AddDate(0, 0, 7); !got.Equal(want) {
		t.Fatalf("got %s, want following week %s", got, want)
	}
}

func TestResolveTimePhrases(t *testing.T) {
	tests := []struct {
		name     string
		phrase   string
		wantHour int
		wantMin  int
	}{
		{"afternoon with meridiem", "3:30pm", 15, 30},
		{"morning with meridiem", "9am", 9, 0},
		{"noon pm unchanged", "12pm", 12, 0},
		{"midnight am", "12am", 0, 0},
		{"24-hour literal", "14:45", 14, 45},
		{"bare hour literal", "7", 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve("", tt.phrase, ref)
			if !ok {
				t.Fatal("expected a resolution")
			}
			if got.Hour() != tt.wantHour || got.Minute() != tt.wantMin {
				t.Fatalf("got %02d:%02d, want %02d:%02d", got.Hour(), got.Minute(), tt.wantHour, tt.wantMin)
			}
			if got.Year() != ref.Year() || got.Day() != ref.Day() {
				t.Fatalf("time-only phrase moved the date: %s", got)
			}
		})
	}
}

func TestResolveUnparseableTimeKeepsClock(t *testing.T) {
	got, ok := Resolve("tomorrow", "whenever", ref)
	if !ok {
		t.Fatal("expected a resolution")
	}
	if got.Hour() != ref.Hour() || got.Minute() != ref.Minute() {
		t.Fatalf("unparseable time changed the clock: %s", got)
	}
}

func TestResolveNothingSupplied(t *testing.T) {
	if _, ok := Resolve("", "  ", ref); ok {
		t.Fatal("expected no resolution when both phrases are empty")
	}
}

func TestResolveCombined(t *testing.T) {
	got, ok := Resolve("Friday", "10:00am", ref)
	if !ok {
		t.Fatal("expected a resolution")
	}
	want := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

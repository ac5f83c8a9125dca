package assessment

import (
	"testing"
	"time"
)

func TestStatWindows(t *testing.T) {
	now := time.Date(2024, 5, 20, 9, 15, 0, 0, time.UTC)
	dayStart, weekStart, monthStart := statWindows(now)

	if want := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC); !dayStart.Equal(want) {
		t.Errorf("dayStart = %v, want %v", dayStart, want)
	}
	if want := now.Add(-7 * 24 * time.Hour); !weekStart.Equal(want) {
		t.Errorf("weekStart = %v, want %v", weekStart, want)
	}
	if want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC); !monthStart.Equal(want) {
		t.Errorf("monthStart = %v, want %v", monthStart, want)
	}
}

func TestStatWindows_MonthWindowAnchorsOnDayOne(t *testing.T) {
	now := time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC)
	_, _, monthStart := statWindows(now)

	if want := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC); !monthStart.Equal(want) {
		t.Errorf("monthStart = %v, want %v", monthStart, want)
	}
}

package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIDGenerator_NewID(t *testing.T) {
	gen := NewIDGenerator()
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		id := gen.NewID()
		if !IsValidID(id) {
			t.Fatalf("generated invalid id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSequenceIDs(t *testing.T) {
	next := SequenceIDs("log")
	if got := next(); got != "log-1" {
		t.Errorf("first id = %s, want log-1", got)
	}
	if got := next(); got != "log-2" {
		t.Errorf("second id = %s, want log-2", got)
	}
}

func TestDaysRemainingInMonth(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"First of January", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 31},
		{"Mid February leap year", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), 10},
		{"Last day of April", time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), 1},
		{"February non-leap", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemainingInMonth(tt.date); got != tt.want {
				t.Errorf("DaysRemainingInMonth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2024, 2, 27, 15, 30, 0, 0, time.UTC)
	dates := DateRange(start, 4)

	want := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i, d := range dates {
		if FormatDate(d) != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, FormatDate(d), want[i])
		}
		if d.Hour() != 0 {
			t.Errorf("dates[%d] not truncated to midnight", i)
		}
	}

	if DateRange(start, 0) != nil {
		t.Error("expected nil range for zero days")
	}
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := NewFixedClock(at)

	if !clock.Now().Equal(at) {
		t.Errorf("Now() = %v, want %v", clock.Now(), at)
	}
	clock.Advance(2 * time.Hour)
	if clock.Now().Hour() != 10 {
		t.Errorf("after Advance, hour = %d, want 10", clock.Now().Hour())
	}
}

func TestRetry(t *testing.T) {
	errConflict := errors.New("conflict")
	errFatal := errors.New("fatal")
	ctx := context.Background()

	t.Run("Succeeds after transient conflicts", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, 5, errConflict, func() error {
			calls++
			if calls < 3 {
				return errConflict
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("Gives up after attempts", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, 3, errConflict, func() error {
			calls++
			return errConflict
		})
		if !errors.Is(err, errConflict) {
			t.Errorf("expected conflict error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("Stops on non-retryable error", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, 5, errConflict, func() error {
			calls++
			return errFatal
		})
		if !errors.Is(err, errFatal) {
			t.Errorf("expected fatal error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

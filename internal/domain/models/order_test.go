package models

import (
	"testing"
	"time"
)

func TestOverridesEmptySourceData(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		l := QuoteLine{ID: 1, SourceData: []byte(raw)}
		o, err := l.Overrides()
		if err != nil {
			t.Fatalf("raw %q: unexpected error: %v", raw, err)
		}
		if o.PickupAt != nil || o.StartDate != nil {
			t.Fatalf("raw %q: expected zero overrides, got %+v", raw, o)
		}
	}
}

func TestOverridesBadJSON(t *testing.T) {
	l := QuoteLine{ID: 1, SourceData: []byte(`{broken`)}
	if _, err := l.Overrides(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDateRange(t *testing.T) {
	s, e := "2025-06-01", "2025-06-03"
	o := LineOverrides{StartDate: &s, EndDate: &e}
	start, end, ok, err := o.DateRange()
	if err != nil || !ok {
		t.Fatalf("expected usable range, got ok=%v err=%v", ok, err)
	}
	if !start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("wrong start: %s", start)
	}
	if !end.Equal(time.Date(2025, 6, 3, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("wrong end: %s", end)
	}
}

func TestDateRangeMissingBound(t *testing.T) {
	s := "2025-06-01"
	o := LineOverrides{StartDate: &s}
	_, _, ok, err := o.DateRange()
	if ok || err != nil {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestDateRangeInverted(t *testing.T) {
	s, e := "2025-06-05", "2025-06-01"
	o := LineOverrides{StartDate: &s, EndDate: &e}
	_, _, _, err := o.DateRange()
	if err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestPickupTimeParsing(t *testing.T) {
	v := "2025-03-05 09:30:00"
	o := LineOverrides{PickupAt: &v}
	got, err := o.PickupTime()
	if err != nil || got == nil {
		t.Fatalf("unexpected: got=%v err=%v", got, err)
	}
	if !got.Equal(time.Date(2025, 3, 5, 9, 30, 0, 0, time.Local)) {
		t.Fatalf("wrong time: %s", got)
	}

	if got, err := (LineOverrides{}).PickupTime(); err != nil || got != nil {
		t.Fatalf("nil override should yield nil, got=%v err=%v", got, err)
	}
}

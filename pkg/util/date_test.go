package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDatePlain(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseDateRFC3339Truncates(t *testing.T) {
	got, ok := ParseDate("2024-10-10T15:04:05Z")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseDate(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2024-10-10" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	got := ParseDateDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestIsTradingDay(t *testing.T) {
	mon := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sat := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !IsTradingDay(mon) {
		t.Fatalf("monday should be a trading day")
	}
	if IsTradingDay(sat) {
		t.Fatalf("saturday should not be a trading day")
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if n := DaysBetween(from, from); n != 1 {
		t.Fatalf("same day should count 1, got %d", n)
	}
	if n := DaysBetween(from, from.AddDate(0, 0, 6)); n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
	if n := DaysBetween(from, from.AddDate(0, 0, -1)); n != 0 {
		t.Fatalf("inverted range should count 0, got %d", n)
	}
}

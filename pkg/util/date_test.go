package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateISO(t *testing.T) {
	got, ok := ParseDate("2020-06-30")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2020 || got.Month() != time.June || got.Day() != 30 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC).Unix()
	got, ok := ParseDate(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC)
	got := ParseDateDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestQuarterStart(t *testing.T) {
	cases := map[time.Month]time.Month{
		time.January:  time.January,
		time.February: time.January,
		time.June:     time.April,
		time.November: time.October,
	}
	for in, want := range cases {
		got := QuarterStart(time.Date(2020, in, 15, 12, 0, 0, 0, time.UTC))
		if got.Month() != want || got.Day() != 1 {
			t.Fatalf("month %v: got %v", in, got)
		}
	}
}

func TestQuarterOf(t *testing.T) {
	if q := QuarterOf(time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC)); q != 2 {
		t.Fatalf("expected Q2, got %d", q)
	}
	if q := QuarterOf(time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)); q != 4 {
		t.Fatalf("expected Q4, got %d", q)
	}
}

package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2010-01-02", " 2010-01-02 ", "2010-01-02T23:59:00Z"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("ParseDate(%q) = %v", in, got)
		}
	}
	if _, err := ParseDate("02/01/2010"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseBarTimeDukascopy(t *testing.T) {
	got, err := ParseBarTime("01.01.2010 00:00:00.000 GMT+0100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2009, 12, 31, 23, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseBarTimeLayouts(t *testing.T) {
	want := time.Date(2010, 1, 4, 13, 0, 0, 0, time.UTC)
	for _, in := range []string{"2010-01-04T13:00:00Z", "2010-01-04 13:00:00", "2010-01-04T15:00:00+02:00"} {
		got, err := ParseBarTime(in)
		if err != nil {
			t.Fatalf("ParseBarTime(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseBarTime(%q) = %v", in, got)
		}
	}
	if _, err := ParseBarTime("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2020, 3, 1, 17, 30, 0, 0, time.UTC)
	if got := StartOfDay(in); !got.Equal(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartOfDay = %v", got)
	}
}

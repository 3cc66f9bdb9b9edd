package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	cases := map[string]TimeOfDay{
		"08:00":    {Hour: 8},
		"23:59:30": {Hour: 23, Minute: 59, Second: 30},
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		if err != nil || got != want {
			t.Fatalf("ParseTimeOfDay(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "8am", "25:00", "12:61"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("ParseTimeOfDay(%q) accepted", bad)
		}
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	t.Parallel()

	var h struct {
		Time TimeOfDay `json:"time"`
	}
	if err := json.Unmarshal([]byte(`{"time":"07:30"}`), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, _ := json.Marshal(h)
	if string(out) != `{"time":"07:30:00"}` {
		t.Fatalf("marshal = %s", out)
	}
	if err := json.Unmarshal([]byte(`{"time":730}`), &h); err == nil {
		t.Fatalf("numeric time accepted")
	}
}

func TestTimeOfDayOnAndDuration(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*3600)
	day := time.Date(2026, 3, 14, 22, 15, 0, 0, loc)
	tod := TimeOfDay{Hour: 8, Minute: 5}

	got := tod.On(day)
	want := time.Date(2026, 3, 14, 8, 5, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("On = %v, want %v", got, want)
	}

	if back := TimeOfDayFromDuration(tod.SinceMidnight()); back != tod {
		t.Fatalf("duration round trip = %v", back)
	}
}

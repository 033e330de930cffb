package tick_test

import (
	"testing"

	"LimitBook/internal/tick"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"101.25", 10125},
		{"101.2", 10120},
		{"101", 10100},
		{"0.01", 1},
		{"0", 0},
		{"-3.50", -350},
		{"+2.00", 200},
	}
	for _, c := range cases {
		got, err := tick.PriceScale.Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", ".", "1.", "1.234", "abc", "1.2.3", "--1", "1e3"} {
		if _, err := tick.PriceScale.Parse(in); err == nil {
			t.Errorf("Parse(%q) accepted malformed input", in)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{10125, "101.25"},
		{10120, "101.20"},
		{1, "0.01"},
		{0, "0.00"},
		{-350, "-3.50"},
	}
	for _, c := range cases {
		if got := tick.PriceScale.Format(c.in); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, ticks := range []int64{0, 1, 99, 100, 10125, -1, -10125} {
		s := tick.PriceScale.Format(ticks)
		back, err := tick.PriceScale.Parse(s)
		if err != nil {
			t.Fatalf("Parse(Format(%d)) error: %v", ticks, err)
		}
		if back != ticks {
			t.Errorf("round trip %d -> %q -> %d", ticks, s, back)
		}
	}
}

package currency

import "testing"

func TestKopecksToRubles(t *testing.T) {
	tests := []struct {
		kopecks int64
		want    string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{1020, "10.20"},
		{100, "1.00"},
		{99, "0.99"},
		{123456, "1234.56"},
		{-1050, "-10.50"},
	}

	for _, tt := range tests {
		if got := KopecksToRubles(tt.kopecks); got != tt.want {
			t.Errorf("KopecksToRubles(%d) = %q, want %q", tt.kopecks, got, tt.want)
		}
	}
}

func TestRublesToKopecks(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10.20", 1020},
		{"10", 1000},
		{"0.01", 1},
		{"0.1", 10},
		{".5", 50},
		{"  7.00 ", 700},
		{"-10.50", -1050},
		{"+3.30", 330},
		// Half away from zero on the third fraction digit, no float drift.
		{"0.115", 12},
		{"0.125", 13},
		{"-0.115", -12},
		{"0.1149", 11},
		{"0.11500", 12},
	}

	for _, tt := range tests {
		got, err := RublesToKopecks(tt.in)
		if err != nil {
			t.Errorf("RublesToKopecks(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("RublesToKopecks(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRublesToKopecksInvalid(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "10,20", "1.2x", "--1"} {
		if _, err := RublesToKopecks(in); err == nil {
			t.Errorf("RublesToKopecks(%q) should fail", in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, kopecks := range []int64{0, 1, 99, 100, 1020, 999999} {
		got, err := RublesToKopecks(KopecksToRubles(kopecks))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", kopecks, err)
		}
		if got != kopecks {
			t.Errorf("round trip of %d produced %d", kopecks, got)
		}
	}
}

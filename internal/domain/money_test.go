package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "120.50", want: 12050},
		{in: "0", want: 0},
		{in: "1000", want: 100000},
		{in: "0.01", want: 1},
		{in: "-3.25", want: -325},
		{in: "0.001", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) = %d, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestApplyRateRoundsHalfAwayFromZero(t *testing.T) {
	onePercent := decimal.New(1, -2)

	if got := ApplyRate(100000, onePercent); got != 1000 {
		t.Fatalf("1%% of 100000 = %d, want 1000", got)
	}
	// 1% of 50 minor units is 0.5, which rounds away from zero.
	if got := ApplyRate(50, onePercent); got != 1 {
		t.Fatalf("1%% of 50 = %d, want 1", got)
	}
	if got := ApplyRate(-50, onePercent); got != -1 {
		t.Fatalf("1%% of -50 = %d, want -1", got)
	}
	// 1% of 49 minor units is 0.49, which rounds to zero.
	if got := ApplyRate(49, onePercent); got != 0 {
		t.Fatalf("1%% of 49 = %d, want 0", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(12050); got != "120.50" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount(7); got != "0.07" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount(-325); got != "-3.25" {
		t.Fatalf("got %q", got)
	}
}

package workflow

import "testing"

func TestFixPartNumberDirection(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		// run order reversed, characters inside each run preserved
		{"2240.KD.00", ".00KD2240."},
		{".00KD2240.", "2240.KD.00"},
		{"6ES7214-1AG40", "40AG7214-1ES6"},
		// no ASCII letters: nothing to fix, even across words
		{"12345", "12345"},
		{"2240.00", "2240.00"},
		{"2240 00", "2240 00"},
		{"12 34", "12 34"},
		{"100-200 300.4", "100-200 300.4"},
		{"מקט-123", "מקט-123"},
		{"", ""},
		// words swap and each word is fixed independently
		{"ABC 123", "123 ABC"},
		{"X1 Y2", "2Y 1X"},
	}
	for _, tc := range cases {
		if got := FixPartNumberDirection(tc.in); got != tc.want {
			t.Errorf("FixPartNumberDirection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFixPartNumberDirection_Involution(t *testing.T) {
	inputs := []string{
		"2240.KD.00",
		"6ES7214-1AG40",
		"SIMATIC S7-1200 CPU",
		"A-1 B-2  C-3",
		"  leading and trailing  ",
		"12345",
		"2240 00",
		"100-200 300.4",
		"מקט 123-AB",
	}
	for _, in := range inputs {
		once := FixPartNumberDirection(in)
		twice := FixPartNumberDirection(once)
		if twice != in {
			t.Errorf("double application of %q gave %q (via %q), want the original", in, twice, once)
		}
	}
}

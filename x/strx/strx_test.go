package strx

import "testing"

func TestCoalesce(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"", ""}, ""},
		{[]string{"", "pico"}, "pico"},
		{[]string{"bench", "pico"}, "bench"},
	}
	for _, tc := range cases {
		if got := Coalesce(tc.in...); got != tc.want {
			t.Fatalf("Coalesce(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

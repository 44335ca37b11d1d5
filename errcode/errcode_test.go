package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("nack")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Timeout, Timeout},
		{"wrapped", &E{C: OutOfRange, Op: "store.read"}, OutOfRange},
		{"foreign", cause, Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Fatalf("%s: Of()=%q want %q", tc.name, got, tc.want)
		}
	}
}

func TestEIsAndUnwrap(t *testing.T) {
	cause := errors.New("nack")
	err := Wrap(IOError, "store.write", cause)
	if !errors.Is(err, IOError) {
		t.Fatal("expected errors.Is to match the code")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if got, want := err.Error(), "store.write: io_error: nack"; got != want {
		t.Fatalf("Error()=%q want %q", got, want)
	}
	if Wrap(IOError, "store.write", nil) != nil {
		t.Fatal("expected nil for nil io cause")
	}
}

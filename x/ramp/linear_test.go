package ramp

import (
	"testing"
	"time"
)

func noWait(time.Duration) bool { return true }

func TestLinear_MonotonicToTarget(t *testing.T) {
	var got []uint16
	ok := Linear(80, 255, 255, 100, 10, noWait, func(l uint16) { got = append(got, l) })
	if !ok {
		t.Fatal("ramp reported cancelled")
	}
	if len(got) == 0 || got[len(got)-1] != 255 {
		t.Fatalf("did not finish at target: %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("not monotonic: %v", got)
		}
	}
}

func TestLinear_SnapAndClamp(t *testing.T) {
	var got []uint16
	Linear(10, 900, 255, 0, 0, noWait, func(l uint16) { got = append(got, l) })
	if len(got) != 1 || got[0] != 255 {
		t.Fatalf("expected single clamped write, got %v", got)
	}
}

func TestLinear_Cancel(t *testing.T) {
	cancel := make(chan struct{})
	close(cancel)
	var got []uint16
	if Linear(0, 200, 255, 1000, 4, Sleep(cancel), func(l uint16) { got = append(got, l) }) {
		t.Fatal("expected cancelled ramp")
	}
	if len(got) != 0 {
		t.Fatalf("cancelled ramp still wrote %v", got)
	}
}

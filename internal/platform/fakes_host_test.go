//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fanmonitor-go/internal/halcore"
)

func TestFakeWatchdog_ExpiresWithoutUpdates(t *testing.T) {
	wd := &FakeWatchdog{}
	if err := wd.Start(); err == nil {
		t.Fatal("expected Start before Configure to fail")
	}
	if err := wd.Configure(20); err != nil {
		t.Fatal(err)
	}
	if err := wd.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-wd.Expired():
	case <-time.After(time.Second):
		t.Fatal("watchdog did not expire")
	}
	if wd.Resets() != 1 {
		t.Fatalf("resets=%d want 1", wd.Resets())
	}
}

func TestFakeWatchdog_UpdatesKeepAlive(t *testing.T) {
	wd := &FakeWatchdog{}
	_ = wd.Configure(40)
	_ = wd.Start()
	defer wd.Stop()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		wd.Update()
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-wd.Expired():
		t.Fatal("watchdog expired despite updates")
	default:
	}
}

func TestFakeADC_HandlerUnderGuard(t *testing.T) {
	f := NewFakes()
	got := make(chan uint16, 2)
	f.ADC.SetHandler(func(raw uint16) { got <- raw })
	f.ADC.Push(292, 300)

	f.ADC.Start()
	f.ADC.Start()
	seen := map[uint16]bool{}
	for i := 0; i < 2; i++ {
		select {
		case v := <-got:
			seen[v] = true
		case <-time.After(time.Second):
			t.Fatal("conversion did not complete")
		}
	}
	if !seen[292] || !seen[300] {
		t.Fatalf("unexpected readings %v", seen)
	}

	// While the guard is held, a conversion cannot complete.
	st := f.Intr.Disable()
	f.ADC.Start()
	select {
	case <-got:
		f.Intr.Restore(st)
		t.Fatal("handler ran while interrupts were masked")
	case <-time.After(10 * time.Millisecond):
	}
	f.Intr.Restore(st)
	select {
	case v := <-got:
		if v != 300 {
			t.Fatalf("empty queue should repeat last reading, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("masked conversion never completed")
	}
}

func TestHostSleeper_WaitFor(t *testing.T) {
	var calls int
	HostSleeper{}.WaitFor(func() bool { calls++; return true })
	if calls != 1 {
		t.Fatalf("satisfied condition checked %d times", calls)
	}

	var flag atomic.Bool
	go func() {
		time.Sleep(2 * time.Millisecond)
		flag.Store(true)
	}()
	done := make(chan struct{})
	go func() {
		HostSleeper{}.WaitFor(flag.Load)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitFor did not observe the condition")
	}
}

func TestHostEEPROM_WordAddressing(t *testing.T) {
	e := NewHostEEPROM(0x50, 256)
	if err := e.Tx(0x50, []byte{0x00, 0x10, 1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 4)
	if err := e.Tx(0x50, []byte{0x00, 0x0F}, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0xFF || r[1] != 1 || r[2] != 2 || r[3] != 3 {
		t.Fatalf("read % x", r)
	}
	if err := e.Tx(0x51, nil, r); err == nil {
		t.Fatal("expected nack for wrong address")
	}
	e.Fail(errors.New("bus stuck"))
	if err := e.Tx(0x50, []byte{0, 0}, r); err == nil {
		t.Fatal("expected injected failure")
	}
}

// countingHandler serves an IN stream of n bytes and records OUT bytes.
type countingHandler struct {
	setupRet uint8
	left     int
	next     byte
	out      []byte
	limit    int
}

func (h *countingHandler) Setup(halcore.SetupPacket) uint8 { return h.setupRet }

func (h *countingHandler) Read(buf []byte) int {
	n := len(buf)
	if n > h.left {
		n = h.left
	}
	for i := 0; i < n; i++ {
		buf[i] = h.next
		h.next++
	}
	h.left -= n
	return n
}

func (h *countingHandler) Write(data []byte) bool {
	h.out = append(h.out, data...)
	return len(data) == 0 || len(h.out) >= h.limit
}

func TestHostUSB_ServeInChunks(t *testing.T) {
	u := NewHostUSB()
	h := &countingHandler{setupRet: halcore.NoMsg, left: 20}
	if err := u.Init(h, []byte{0x06}); err != nil {
		t.Fatal(err)
	}
	res := u.Serve(halcore.SetupPacket{RequestType: 0xA1, Request: halcore.HIDGetReport, Length: 128}, nil)
	if !res.Handled || len(res.Data) != 20 {
		t.Fatalf("handled=%v len=%d", res.Handled, len(res.Data))
	}
	for i, b := range res.Data {
		if b != byte(i) {
			t.Fatalf("byte %d = %d", i, b)
		}
	}

	h2 := &countingHandler{setupRet: halcore.NoMsg, limit: 16}
	_ = u.Init(h2, nil)
	data := make([]byte, 40)
	res = u.Serve(halcore.SetupPacket{RequestType: 0x21, Request: halcore.HIDSetReport, Length: 40}, data)
	if !res.Done || res.Written != 16 || len(h2.out) != 16 {
		t.Fatalf("done=%v written=%d out=%d", res.Done, res.Written, len(h2.out))
	}

	h3 := &countingHandler{setupRet: 0}
	_ = u.Init(h3, nil)
	res = u.Serve(halcore.SetupPacket{RequestType: 0x80, Request: 0x06, Length: 18}, nil)
	if res.Handled || len(res.Data) != 0 {
		t.Fatalf("unhandled request produced data: %+v", res)
	}
}

func TestHostUSB_PollOnlyWhenConnected(t *testing.T) {
	u := NewHostUSB()
	_ = u.Init(&countingHandler{setupRet: halcore.NoMsg, left: 8}, nil)
	ch := u.Submit(halcore.SetupPacket{RequestType: 0xA1, Request: halcore.HIDGetReport, Length: 8}, nil)

	u.Poll()
	select {
	case <-ch:
		t.Fatal("served while disconnected")
	default:
	}

	u.Connect()
	u.Poll()
	select {
	case r := <-ch:
		if len(r.Data) != 8 {
			t.Fatalf("len=%d", len(r.Data))
		}
	default:
		t.Fatal("expected transfer to be served")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := u.Control(ctx, halcore.SetupPacket{}, nil); err == nil {
		t.Fatal("expected timeout without a polling loop")
	}
}

func TestBoot_ReentersAfterWatchdogReset(t *testing.T) {
	f := NewFakes()
	b := f.Board()

	var boots atomic.Uint32
	run := func(ctx context.Context, boot uint32) error {
		boots.Store(boot)
		if err := b.Watchdog.Configure(20); err != nil {
			return err
		}
		if err := b.Watchdog.Start(); err != nil {
			return err
		}
		// Wedged: never updates the watchdog.
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan uint32, 1)
	go func() { done <- Boot(ctx, b, run) }()

	deadline := time.Now().Add(2 * time.Second)
	for boots.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	n := <-done
	if n < 3 {
		t.Fatalf("expected at least 3 boot attempts, got %d", n)
	}
	if f.Watchdog.Resets() < 2 {
		t.Fatalf("expected watchdog resets, got %d", f.Watchdog.Resets())
	}
}

func TestBoot_AbandonsAttemptIgnoringContext(t *testing.T) {
	b := NewFakes().Board()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	var boots atomic.Uint32
	run := func(ctx context.Context, boot uint32) error {
		boots.Store(boot)
		if boot > 1 {
			<-ctx.Done()
			return nil
		}
		if err := b.Watchdog.Configure(20); err != nil {
			return err
		}
		if err := b.Watchdog.Start(); err != nil {
			return err
		}
		// Stuck with the context ignored.
		<-release
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan uint32, 1)
	go func() { done <- Boot(ctx, b, run) }()

	deadline := time.Now().Add(2 * time.Second)
	for boots.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case n := <-done:
		if n < 2 {
			t.Fatalf("boots=%d, wedged attempt was never abandoned", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Boot did not return")
	}
}

func TestBoot_RetriesFailedBringUp(t *testing.T) {
	b := NewFakes().Board()
	var calls atomic.Uint32
	run := func(ctx context.Context, boot uint32) error {
		if calls.Add(1) < 3 {
			return errors.New("pwm")
		}
		<-ctx.Done()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan uint32, 1)
	go func() { done <- Boot(ctx, b, run) }()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if n := <-done; n != 3 {
		t.Fatalf("boots=%d want 3", n)
	}
}

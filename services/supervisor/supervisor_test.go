package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/internal/halcore"
	"fanmonitor-go/internal/platform"
	"fanmonitor-go/services/fan"
	"fanmonitor-go/services/featurereport"
	"fanmonitor-go/services/sampler"
	"fanmonitor-go/services/store"
	"fanmonitor-go/types"
)

var (
	getReport = halcore.SetupPacket{RequestType: 0xA1, Request: halcore.HIDGetReport, Value: 0x0300, Length: store.Size}
	setReport = halcore.SetupPacket{RequestType: 0x21, Request: halcore.HIDSetReport, Value: 0x0300, Length: store.Size}
)

type rig struct {
	f    *platform.Fakes
	b    *bus.Bus
	mem  *store.Memory
	samp *sampler.Sampler
	sup  *Supervisor
}

func newRig(t *testing.T, cfg types.SupervisorConfig) *rig {
	t.Helper()
	f := platform.NewFakes()
	t.Cleanup(f.Watchdog.Stop)

	b := bus.NewBus(8)
	conn := b.NewConnection("supervisor")
	mem := store.NewMemory()
	samp := sampler.New(f.ADC, f.Intr, platform.HostSleeper{}, types.SamplerConfig{})
	d := Deps{
		USB:      f.USB,
		Watchdog: f.Watchdog,
		Debug:    f.Debug,
		Fan:      fan.New(f.PWM, fan.DefaultConfig()),
		Sampler:  samp,
		Engine:   featurereport.New(mem, conn),
	}
	return &rig{f: f, b: b, mem: mem, samp: samp, sup: New(d, cfg, conn, 1)}
}

func fastConfig() types.SupervisorConfig {
	cfg := DefaultConfig()
	cfg.ReenumerateMs = 5
	cfg.SampleEveryMs = 10
	cfg.WatchdogMs = 50
	return cfg
}

func TestBringUp_Order(t *testing.T) {
	r := newRig(t, fastConfig())
	states := r.b.NewConnection("test").Subscribe(StateTopic)

	start := time.Now()
	if err := r.sup.BringUp(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("re-enumeration delay skipped")
	}

	ev := r.f.USB.Events()
	want := []string{"disconnect", "connect", "init"}
	if len(ev) != len(want) {
		t.Fatalf("usb events %v", ev)
	}
	for i := range want {
		if ev[i] != want[i] {
			t.Fatalf("usb events %v want %v", ev, want)
		}
	}
	if !bytes.Equal(r.f.USB.Descriptor(), featurereport.ReportDescriptor) {
		t.Fatal("report descriptor not registered")
	}
	if r.f.PWM.FreqHz() != 25_000 || r.f.PWM.Duty() != 0x50 {
		t.Fatalf("pwm freq=%d duty=%#x", r.f.PWM.FreqHz(), r.f.PWM.Duty())
	}
	if !r.f.ADC.Configured() {
		t.Fatal("ADC not configured")
	}
	if r.f.Watchdog.Expired() == nil {
		t.Fatal("watchdog not armed")
	}
	if !r.f.Debug.IsOutput() || r.f.Debug.Level() {
		t.Fatal("status pin should be an output driven low")
	}

	select {
	case m := <-states.Channel():
		st := m.Payload.(types.SupervisorState)
		if st.Level != types.LevelBooting || st.Boot != 1 {
			t.Fatalf("state %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no state published")
	}
}

func TestBringUp_PWMFailureStopsEarly(t *testing.T) {
	r := newRig(t, fastConfig())
	r.f.PWM.FailConfigure(errors.New("no slice"))

	if err := r.sup.BringUp(context.Background()); err == nil {
		t.Fatal("expected bring-up to fail")
	}
	if ev := r.f.USB.Events(); len(ev) != 0 {
		t.Fatalf("usb touched after pwm failure: %v", ev)
	}
	if r.f.Watchdog.Expired() != nil {
		t.Fatal("watchdog armed after pwm failure")
	}
}

func TestBringUp_Cancelled(t *testing.T) {
	cfg := fastConfig()
	cfg.ReenumerateMs = 1000
	r := newRig(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.sup.BringUp(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func startRun(t *testing.T, r *rig) (context.CancelFunc, <-chan error) {
	t.Helper()
	if err := r.sup.BringUp(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.sup.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})
	return cancel, done
}

func TestRun_FeedsWatchdogAndSamples(t *testing.T) {
	r := newRig(t, fastConfig())
	r.f.ADC.Push(292, 300, 310)
	startRun(t, r)

	time.Sleep(200 * time.Millisecond)
	select {
	case <-r.f.Watchdog.Expired():
		t.Fatal("watchdog expired while the loop was running")
	default:
	}
	if r.f.Watchdog.Updates() == 0 {
		t.Fatal("watchdog never updated")
	}
	if n := r.samp.Conversions(); n < 3 {
		t.Fatalf("conversions=%d, expected periodic sampling", n)
	}
}

func TestRun_ServesFeatureReports(t *testing.T) {
	r := newRig(t, fastConfig())
	startRun(t, r)

	want := make([]byte, store.Size)
	for i := range want {
		want[i] = byte(255 - i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := r.f.USB.Control(ctx, setReport, want)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Handled || !res.Done || res.Written != store.Size {
		t.Fatalf("set report %+v", res)
	}
	snap := r.mem.Snapshot()
	if !bytes.Equal(snap[:], want) {
		t.Fatal("store not updated")
	}

	res, err = r.f.USB.Control(ctx, getReport, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(res.Data, want) {
		t.Fatalf("get report returned %d bytes, mismatch", len(res.Data))
	}
}

func TestRun_ConfigAndStoppedState(t *testing.T) {
	cfg := fastConfig()
	cfg.SampleEveryMs = 10_000
	r := newRig(t, cfg)
	cancel, done := startRun(t, r)

	pub := r.b.NewConnection("config")
	pub.Publish(pub.NewMessage(ConfigTopic, json.RawMessage(`{"sample_every_ms":5}`), true))

	deadline := time.Now().Add(time.Second)
	for r.samp.Conversions() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.samp.Conversions() < 3 {
		t.Fatalf("sample period not updated, conversions=%d", r.samp.Conversions())
	}

	states := r.b.NewConnection("test").Subscribe(StateTopic)
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(time.Second)
	for {
		select {
		case m := <-states.Channel():
			if m.Payload.(types.SupervisorState).Level == types.LevelStopped {
				return
			}
		case <-time.After(time.Until(deadline)):
			t.Fatal("stopped state not published")
		}
	}
}

package config

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/errcode"
	"fanmonitor-go/types"
)

func withLookup(t *testing.T, device, doc string) {
	t.Helper()
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(d string) ([]byte, bool) {
		if d != device {
			return nil, false
		}
		return []byte(doc), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = old })
}

func TestPublish_RetainedPerKey(t *testing.T) {
	withLookup(t, "pico", `{
		"fan": {"mode": "fixed", "fixed_duty": 96},
		"supervisor": {"watchdog_ms": 500},
		"store": {"backend": "memory"}
	}`)

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	NewService("").Start(context.Background(), conn)

	sub := conn.Subscribe(bus.T(configPrefix, "#"))
	got := map[string]json.RawMessage{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 3 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if !m.Retained {
				t.Fatalf("config message not retained: %v", m.Topic)
			}
			key, ok := m.Topic.At(1).(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic.At(1))
			}
			raw, ok := m.Payload.(json.RawMessage)
			if !ok {
				t.Fatalf("payload type %T", m.Payload)
			}
			got[key] = raw
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got))
	}

	var fan types.FanConfig
	if err := json.Unmarshal(got["fan"], &fan); err != nil {
		t.Fatal(err)
	}
	if fan.Mode != types.FanModeFixed || fan.FixedDuty == nil || *fan.FixedDuty != 96 {
		t.Fatalf("fan section %+v", fan)
	}
}

func TestLoad(t *testing.T) {
	withLookup(t, "bench", `{"supervisor": {"watchdog_ms": 500}}`)

	cfg := types.SupervisorConfig{WatchdogMs: 1000, SampleEveryMs: 1000}
	if err := Load("bench", "supervisor", &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.WatchdogMs != 500 || cfg.SampleEveryMs != 1000 {
		t.Fatalf("merged config %+v", cfg)
	}

	st := types.StoreConfig{Backend: "memory"}
	if err := Load("bench", "store", &st); err != nil || st.Backend != "memory" {
		t.Fatalf("missing section should keep defaults: %+v %v", st, err)
	}

	if err := Load("nope", "fan", &cfg); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("unknown device: %v", err)
	}
}

func TestLoad_BadDocument(t *testing.T) {
	withLookup(t, "bad", `{"fan": [`)
	var fan types.FanConfig
	if err := Load("bad", "fan", &fan); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err=%v", err)
	}
	withLookup(t, "typed", `{"fan": {"top": "high"}}`)
	if err := Load("typed", "fan", &fan); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err=%v", err)
	}
}

func TestEmbeddedConfigsDecode(t *testing.T) {
	for device := range embeddedConfigs {
		var fan types.FanConfig
		var sup types.SupervisorConfig
		var st types.StoreConfig
		for key, dst := range map[string]any{"fan": &fan, "supervisor": &sup, "store": &st} {
			m, err := sections(device)
			if err != nil {
				t.Fatalf("%s: %v", device, err)
			}
			if raw, ok := m[key]; ok {
				if err := json.Unmarshal(raw, dst); err != nil {
					t.Fatalf("%s/%s: %v", device, key, err)
				}
			}
		}
		if st.Backend == "" {
			t.Fatalf("%s: store backend missing", device)
		}
	}
}

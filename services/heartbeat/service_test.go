package heartbeat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/services/fan"
	"fanmonitor-go/services/featurereport"
	"fanmonitor-go/services/sampler"
	"fanmonitor-go/types"
)

func TestSummaryFollowsTopics(t *testing.T) {
	b := bus.NewBus(8)
	pub := b.NewConnection("test")
	out := pub.Subscribe(SummaryTopic)

	pub.Publish(pub.NewMessage(ConfigTopic, json.RawMessage(`{"interval_ms":10}`), true))
	pub.Publish(pub.NewMessage(sampler.ValueTopic, types.TemperatureValue{Raw: 323, DeciC: 550, Seq: 7}, true))
	pub.Publish(pub.NewMessage(fan.DutyTopic, types.DutyValue{Duty: 0xA8}, true))
	pub.Publish(pub.NewMessage(featurereport.StatusTopic, types.TransferStatus{Sessions: 3}, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New().Start(ctx, b.NewConnection("heartbeat"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-out.Channel():
			hb := m.Payload.(types.Heartbeat)
			if hb.Raw == 323 && hb.DeciC == 550 && hb.Samples == 7 && hb.Duty == 0xA8 && hb.Transfers == 3 {
				return
			}
		case <-deadline:
			t.Fatal("summary never reflected the published values")
		}
	}
}

// Package heartbeat logs and publishes a periodic one-line summary of the
// latest reading, duty and transfer count.
package heartbeat

import (
	"context"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/internal/util"
	"fanmonitor-go/services/fan"
	"fanmonitor-go/services/featurereport"
	"fanmonitor-go/services/sampler"
	"fanmonitor-go/types"
	"fanmonitor-go/x/logx"
	"fanmonitor-go/x/timex"
)

const component = "heartbeat"

var (
	SummaryTopic = bus.T("heartbeat", "summary")
	ConfigTopic  = bus.T("config", "heartbeat")
)

const defaultInterval = 5 * time.Second

type Service struct {
	start time.Time
	last  types.Heartbeat
}

func New() *Service { return &Service{start: time.Now()} }

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(ConfigTopic)
	temps := conn.Subscribe(sampler.ValueTopic)
	duties := conn.Subscribe(fan.DutyTopic)
	xfers := conn.Subscribe(featurereport.StatusTopic)
	defer conn.Disconnect()

	interval := defaultInterval
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.beat(conn)
		case m := <-cfgSub.Channel():
			var cfg types.HeartbeatConfig
			if err := util.DecodeJSON(m.Payload, &cfg); err != nil {
				logx.Warn(component, "bad config", logx.Err(err))
				continue
			}
			interval = timex.Ms(cfg.IntervalMs, defaultInterval)
			tick.Reset(interval)
			logx.Info(component, "interval set", logx.Uint("ms", uint32(interval/time.Millisecond)))
		case m := <-temps.Channel():
			if v, ok := m.Payload.(types.TemperatureValue); ok {
				s.last.Raw, s.last.DeciC, s.last.Samples = v.Raw, v.DeciC, v.Seq
			}
		case m := <-duties.Channel():
			if v, ok := m.Payload.(types.DutyValue); ok {
				s.last.Duty = v.Duty
			}
		case m := <-xfers.Channel():
			if v, ok := m.Payload.(types.TransferStatus); ok {
				s.last.Transfers = v.Sessions
			}
		}
	}
}

func (s *Service) beat(conn *bus.Connection) {
	s.last.UptimeMs = time.Since(s.start).Milliseconds()
	logx.Info(component, "alive",
		logx.Int32("deci_c", s.last.DeciC),
		logx.Hex("duty", uint32(s.last.Duty)),
		logx.Uint("samples", s.last.Samples),
		logx.Uint("transfers", s.last.Transfers))
	conn.Publish(conn.NewMessage(SummaryTopic, s.last, true))
}

// Start runs the service until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.serviceLoop(ctx, conn)
}

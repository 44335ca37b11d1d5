// Package supervisor brings the board up in a fixed order and then runs the
// foreground loop: feed the watchdog, serve USB, sample on a cadence.
package supervisor

import (
	"context"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/errcode"
	"fanmonitor-go/internal/halcore"
	"fanmonitor-go/internal/util"
	"fanmonitor-go/services/fan"
	"fanmonitor-go/services/featurereport"
	"fanmonitor-go/services/sampler"
	"fanmonitor-go/types"
	"fanmonitor-go/x/logx"
	"fanmonitor-go/x/timex"
)

const component = "supervisor"

var (
	StateTopic  = bus.T("supervisor", "state")
	ConfigTopic = bus.T("config", "supervisor")
)

const (
	defaultWatchdog    = time.Second
	defaultSampleEvery = time.Second
	defaultReenumerate = 300 * time.Millisecond

	// pollEvery bounds USB latency and lets other goroutines run.
	pollEvery = time.Millisecond
)

func DefaultConfig() types.SupervisorConfig {
	return types.SupervisorConfig{
		WatchdogMs:    uint32(defaultWatchdog / time.Millisecond),
		SampleEveryMs: uint32(defaultSampleEvery / time.Millisecond),
		ReenumerateMs: uint32(defaultReenumerate / time.Millisecond),
		LogLevel:      "info",
	}
}

// Deps are the collaborators the supervisor sequences.
type Deps struct {
	USB      halcore.USBTransport
	Watchdog halcore.Watchdog
	Debug    halcore.OutputPin
	Fan      *fan.Controller
	Sampler  *sampler.Sampler
	Engine   *featurereport.Engine
}

type Supervisor struct {
	d    Deps
	cfg  types.SupervisorConfig
	conn *bus.Connection
	boot uint32
}

func New(d Deps, cfg types.SupervisorConfig, conn *bus.Connection, boot uint32) *Supervisor {
	return &Supervisor{d: d, cfg: cfg, conn: conn, boot: boot}
}

func (s *Supervisor) publishState(level types.Level, status string) {
	s.conn.Publish(s.conn.NewMessage(StateTopic, types.SupervisorState{
		Level:  level,
		Boot:   s.boot,
		Status: status,
		TS:     time.Now().UnixMilli(),
	}, true))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &errcode.E{C: errcode.Of(err), Op: op, Err: err}
}

// BringUp configures the fan output, re-enumerates USB, powers the ADC,
// arms the watchdog and asserts the status pin. Any failure aborts the boot
// attempt.
func (s *Supervisor) BringUp(ctx context.Context) error {
	s.publishState(types.LevelBooting, "")
	logx.Info(component, "bring-up", logx.Uint("boot", s.boot))

	if err := s.d.Fan.Configure(); err != nil {
		return wrap("bringup.pwm", err)
	}

	// Force the host to re-enumerate: a watchdog reset leaves it believing
	// the old device is still attached.
	s.d.USB.Disconnect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timex.Ms(s.cfg.ReenumerateMs, defaultReenumerate)):
	}
	s.d.USB.Connect()
	if err := s.d.USB.Init(s.d.Engine, featurereport.ReportDescriptor); err != nil {
		return wrap("bringup.usb", err)
	}

	if err := s.d.Sampler.Configure(); err != nil {
		return wrap("bringup.adc", err)
	}

	wdMs := s.cfg.WatchdogMs
	if wdMs == 0 {
		wdMs = uint32(defaultWatchdog / time.Millisecond)
	}
	if err := s.d.Watchdog.Configure(wdMs); err != nil {
		return wrap("bringup.watchdog", err)
	}
	if err := s.d.Watchdog.Start(); err != nil {
		return wrap("bringup.watchdog", err)
	}

	// Status pin is active low.
	if err := s.d.Debug.ConfigureOutput(false); err != nil {
		return wrap("bringup.debug", err)
	}
	logx.Info(component, "bring-up done", logx.Uint("watchdog_ms", wdMs))
	return nil
}

// Run is the foreground loop. It returns when ctx is cancelled, which only
// happens off-target.
func (s *Supervisor) Run(ctx context.Context) error {
	cfgSub := s.conn.Subscribe(ConfigTopic)
	defer s.conn.Unsubscribe(cfgSub)

	every := timex.Ms(s.cfg.SampleEveryMs, defaultSampleEvery)
	next := time.Now()

	s.publishState(types.LevelRunning, "")
	tick := time.NewTimer(pollEvery)
	defer tick.Stop()

	for {
		s.d.Watchdog.Update()
		s.d.USB.Poll()

		if now := time.Now(); !now.Before(next) {
			s.d.Sampler.TriggerSample()
			next = now.Add(every)
		}

		select {
		case <-ctx.Done():
			s.publishState(types.LevelStopped, "")
			return nil
		case m := <-cfgSub.Channel():
			var cfg types.SupervisorConfig
			if err := util.DecodeJSON(m.Payload, &cfg); err != nil {
				logx.Warn(component, "bad config", logx.Err(err))
				continue
			}
			every = s.apply(cfg, every)
		case <-tick.C:
			util.ResetTimer(tick, pollEvery)
		}
	}
}

// apply takes the live-tunable parts of a config update.
func (s *Supervisor) apply(cfg types.SupervisorConfig, every time.Duration) time.Duration {
	if cfg.SampleEveryMs != 0 {
		every = timex.Ms(cfg.SampleEveryMs, defaultSampleEvery)
		s.cfg.SampleEveryMs = cfg.SampleEveryMs
	}
	if l, ok := logx.ParseLevel(cfg.LogLevel); ok {
		logx.SetLevel(l)
		s.cfg.LogLevel = cfg.LogLevel
	}
	return every
}

// Package fan maps temperature readings onto the fan PWM duty.
package fan

import (
	"context"
	"sync"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/internal/halcore"
	"fanmonitor-go/internal/util"
	"fanmonitor-go/services/sampler"
	"fanmonitor-go/types"
	"fanmonitor-go/x/logx"
	"fanmonitor-go/x/mathx"
	"fanmonitor-go/x/ramp"
)

const component = "fan"

var (
	DutyTopic   = bus.T("fan", "duty", "value")
	ConfigTopic = bus.T("config", "fan")
)

// DefaultConfig: duty 0x50 at or below raw 292, full scale at or above 354.
func DefaultConfig() types.FanConfig {
	return types.FanConfig{
		Mode:      types.FanModeCurve,
		FixedDuty: types.U16(0x50),
		MinDuty:   types.U16(0x50),
		MaxDuty:   types.U16(0xFF),
		Top:       255,
		FreqHz:    25_000,
		Cal:       types.Calibration{RawLow: sampler.Raw25, RawHigh: sampler.Raw85},
	}
}

// settings is a FanConfig with every field resolved.
type settings struct {
	mode      types.FanMode
	fixed     uint16
	min, max  uint16
	top       uint16
	freqHz    uint32
	cal       types.Calibration
	rampMs    uint32
	rampSteps uint16
}

func orDefault(v, d *uint16) uint16 {
	if v != nil {
		return *v
	}
	return *d
}

// resolve fills absent fields from the defaults and orders the bounds.
// Zero is a valid duty; only a nil field takes the default.
func resolve(c types.FanConfig) settings {
	d := DefaultConfig()
	s := settings{
		mode:      c.Mode,
		fixed:     orDefault(c.FixedDuty, d.FixedDuty),
		min:       orDefault(c.MinDuty, d.MinDuty),
		max:       orDefault(c.MaxDuty, d.MaxDuty),
		top:       c.Top,
		freqHz:    c.FreqHz,
		cal:       c.Cal,
		rampMs:    c.RampMs,
		rampSteps: c.RampSteps,
	}
	if s.mode == "" {
		s.mode = d.Mode
	}
	if s.top == 0 {
		s.top = d.Top
	}
	if s.freqHz == 0 {
		s.freqHz = d.FreqHz
	}
	if s.cal.RawLow == 0 && s.cal.RawHigh == 0 {
		s.cal = d.Cal
	}
	if s.cal.RawHigh < s.cal.RawLow {
		s.cal.RawLow, s.cal.RawHigh = s.cal.RawHigh, s.cal.RawLow
	}
	if s.max < s.min {
		s.min, s.max = s.max, s.min
	}
	s.min = mathx.Min(s.min, s.top)
	s.max = mathx.Min(s.max, s.top)
	s.fixed = mathx.Min(s.fixed, s.top)
	return s
}

// config converts back with freshly allocated duty fields.
func (s settings) config() types.FanConfig {
	return types.FanConfig{
		Mode:      s.mode,
		FixedDuty: types.U16(s.fixed),
		MinDuty:   types.U16(s.min),
		MaxDuty:   types.U16(s.max),
		Top:       s.top,
		FreqHz:    s.freqHz,
		Cal:       s.cal,
		RampMs:    s.rampMs,
		RampSteps: s.rampSteps,
	}
}

type Controller struct {
	pwm halcore.PWM

	mu         sync.Mutex
	cfg        settings
	duty       uint16
	rampCancel chan struct{}
}

func New(pwm halcore.PWM, cfg types.FanConfig) *Controller {
	return &Controller{pwm: pwm, cfg: resolve(cfg)}
}

func (c *Controller) settings() settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Configure sets the PWM frequency and resolution and writes the fixed
// initial duty.
func (c *Controller) Configure() error {
	cfg := c.settings()
	if err := c.pwm.Configure(cfg.freqHz, cfg.top); err != nil {
		return err
	}
	c.write(cfg.fixed)
	logx.Info(component, "pwm configured",
		logx.Uint("freq_hz", cfg.freqHz),
		logx.Uint("top", uint32(cfg.top)),
		logx.Hex("duty", uint32(cfg.fixed)))
	return nil
}

// Config returns the active configuration with every field set.
func (c *Controller) Config() types.FanConfig {
	return c.settings().config()
}

// Duty maps a raw reading onto [MinDuty, MaxDuty] linearly between the
// calibration points. It is monotonic non-decreasing in raw.
func (c *Controller) Duty(raw uint16) uint16 {
	return dutyFor(c.settings(), raw)
}

func dutyFor(cfg settings, raw uint16) uint16 {
	if raw <= cfg.cal.RawLow {
		return cfg.min
	}
	if raw >= cfg.cal.RawHigh {
		return cfg.max
	}
	d := mathx.MapU16(raw, cfg.cal.RawLow, cfg.cal.RawHigh, cfg.min, cfg.max)
	return mathx.Clamp(d, cfg.min, cfg.max)
}

// SetDuty computes the duty for raw and drives the output towards it,
// ramping when the configuration asks for it. It returns the target.
func (c *Controller) SetDuty(raw uint16) uint16 {
	cfg := c.settings()
	target := dutyFor(cfg, raw)
	c.drive(cfg, target)
	return target
}

// Current returns the duty last written to the output.
func (c *Controller) Current() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duty
}

func (c *Controller) write(d uint16) {
	c.pwm.Set(d)
	c.mu.Lock()
	c.duty = d
	c.mu.Unlock()
}

func (c *Controller) drive(cfg settings, target uint16) {
	c.mu.Lock()
	if c.rampCancel != nil {
		close(c.rampCancel)
		c.rampCancel = nil
	}
	from := c.duty
	if cfg.rampMs == 0 || cfg.rampSteps == 0 || from == target {
		c.mu.Unlock()
		c.write(target)
		return
	}
	cancel := make(chan struct{})
	c.rampCancel = cancel
	c.mu.Unlock()

	go func() {
		ramp.Linear(from, target, cfg.top, cfg.rampMs, cfg.rampSteps, ramp.Sleep(cancel), func(l uint16) {
			select {
			case <-cancel:
				return
			default:
			}
			c.write(l)
		})
	}()
}

// Apply replaces the configuration. Absent fields take the defaults.
// Switching into fixed mode writes the fixed duty straight away.
func (c *Controller) Apply(cfg types.FanConfig) {
	next := resolve(cfg)
	c.mu.Lock()
	prev := c.cfg
	c.cfg = next
	c.mu.Unlock()
	if next.mode == types.FanModeFixed && (prev.mode != types.FanModeFixed || prev.fixed != next.fixed) {
		c.drive(next, next.fixed)
	}
	logx.Info(component, "config applied", logx.Str("mode", string(next.mode)))
}

// Run applies one duty update per completed sample and follows config/fan
// until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, conn *bus.Connection) {
	samples := conn.Subscribe(sampler.ValueTopic)
	cfgSub := conn.Subscribe(ConfigTopic)
	defer conn.Unsubscribe(samples)
	defer conn.Unsubscribe(cfgSub)

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.rampCancel != nil {
				close(c.rampCancel)
				c.rampCancel = nil
			}
			c.mu.Unlock()
			return

		case m := <-cfgSub.Channel():
			// JSON updates overlay the active config, so omitted fields
			// keep their current values.
			cfg := c.Config()
			if err := util.DecodeJSON(m.Payload, &cfg); err != nil {
				logx.Warn(component, "bad config", logx.Err(err))
				continue
			}
			c.Apply(cfg)

		case m := <-samples.Channel():
			v, ok := m.Payload.(types.TemperatureValue)
			if !ok {
				continue
			}
			cfg := c.settings()
			duty := c.Current()
			if cfg.mode != types.FanModeFixed {
				duty = c.SetDuty(v.Raw)
			}
			conn.Publish(conn.NewMessage(DutyTopic, types.DutyValue{
				Duty: duty,
				Top:  cfg.top,
				Raw:  v.Raw,
				Mode: cfg.mode,
				TS:   time.Now().UnixMilli(),
			}, true))
		}
	}
}

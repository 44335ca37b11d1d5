// Package sampler owns the interrupt-fed temperature history. The
// conversion-complete handler is the only writer; foreground readers go
// through the interrupt guard so they never see a half-updated pair.
package sampler

import (
	"context"
	"sync/atomic"
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/internal/halcore"
	"fanmonitor-go/types"
	"fanmonitor-go/x/logx"
)

const component = "sampler"

// ValueTopic carries a retained types.TemperatureValue per conversion.
var ValueTopic = bus.T("sensor", "temperature", "value")

const defaultQueue = 4

// History holds the last two completed readings.
type History struct {
	Current  uint16
	Previous uint16
}

type Sampler struct {
	adc   halcore.ADC
	intr  halcore.Interrupts
	sleep halcore.Sleeper

	// Written only by HandleConversion, with interrupts masked.
	hist History

	conversions atomic.Uint32
	drops       atomic.Uint32
	isrQ        chan uint16
}

func New(adc halcore.ADC, intr halcore.Interrupts, sleep halcore.Sleeper, cfg types.SamplerConfig) *Sampler {
	q := cfg.Queue
	if q <= 0 {
		q = defaultQueue
	}
	return &Sampler{
		adc:   adc,
		intr:  intr,
		sleep: sleep,
		isrQ:  make(chan uint16, q),
	}
}

// Configure installs the conversion handler and powers up the converter.
func (s *Sampler) Configure() error {
	s.adc.SetHandler(s.HandleConversion)
	return s.adc.Configure()
}

// HandleConversion is the conversion-complete path. It shifts the history
// by one and hands the reading to Run without ever blocking.
func (s *Sampler) HandleConversion(raw uint16) {
	s.hist.Previous = s.hist.Current
	s.hist.Current = raw
	select {
	case s.isrQ <- raw:
	default:
		s.drops.Add(1) // protect ISR path
	}
	s.conversions.Add(1)
}

// TriggerSample snapshots the current reading, starts one conversion and
// parks until the handler has run. It returns the snapshot: the last
// reading completed before this call, not the one it triggered.
func (s *Sampler) TriggerSample() uint16 {
	st := s.intr.Disable()
	snap := s.hist.Current
	s.intr.Restore(st)

	gen := s.conversions.Load()
	s.adc.Start()
	s.sleep.WaitFor(func() bool { return s.conversions.Load() != gen })
	return snap
}

// History returns (current, previous) as one consistent pair.
func (s *Sampler) History() (current, previous uint16) {
	st := s.intr.Disable()
	h := s.hist
	s.intr.Restore(st)
	return h.Current, h.Previous
}

// Conversions counts completed conversions.
func (s *Sampler) Conversions() uint32 { return s.conversions.Load() }

// Drops counts readings the handler could not hand to Run.
func (s *Sampler) Drops() uint32 { return s.drops.Load() }

// Run publishes each handed-off reading until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context, conn *bus.Connection) {
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-s.isrQ:
			seq++
			v := types.TemperatureValue{
				Raw:     raw,
				DeciC:   DeciC(raw),
				Seq:     seq,
				Dropped: s.drops.Load(),
				TS:      time.Now().UnixMilli(),
			}
			logx.Debug(component, "conversion", logx.Uint("raw", uint32(raw)), logx.Int32("deci_c", v.DeciC))
			conn.Publish(conn.NewMessage(ValueTopic, v, true))
		}
	}
}

//go:build rp2040 || rp2350

package platform

import (
	"context"
	"device/arm"
	"device/rp"
	"machine"
	"runtime/interrupt"
	"time"

	"fanmonitor-go/internal/halcore"
	"fanmonitor-go/x/logx"
	"fanmonitor-go/x/mathx"
	"fanmonitor-go/x/shmring"
	"fanmonitor-go/x/timex"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// ----------------------------- Interrupt guard -------------------------------

type rp2Interrupts struct{}

func (rp2Interrupts) Disable() halcore.IntrState {
	return halcore.IntrState(interrupt.Disable())
}

func (rp2Interrupts) Restore(s halcore.IntrState) {
	interrupt.Restore(interrupt.State(s))
}

type rp2Sleeper struct{}

func (rp2Sleeper) WaitFor(done func() bool) {
	for {
		st := interrupt.Disable()
		if done() {
			interrupt.Restore(st)
			return
		}
		arm.Asm("wfi")
		interrupt.Restore(st)
	}
}

// ----------------------------- ADC -------------------------------------------

// The temperature sensor is ADC input 4. Conversions are started one at a
// time and completion is signalled by the FIFO-level interrupt.
const tempSensorInput = 4

var adcHandler func(raw uint16)

type rp2ADC struct{}

func (rp2ADC) Configure() error {
	machine.InitADC()
	rp.ADC.CS.Set(rp.ADC_CS_EN | rp.ADC_CS_TS_EN | (tempSensorInput << rp.ADC_CS_AINSEL_Pos))
	rp.ADC.FCS.Set(rp.ADC_FCS_EN | (1 << rp.ADC_FCS_THRESH_Pos))
	rp.ADC.INTE.Set(rp.ADC_INTE_FIFO)
	irq := interrupt.New(rp.IRQ_ADC_IRQ_FIFO, adcISR)
	irq.Enable()
	return nil
}

func (rp2ADC) SetHandler(fn func(raw uint16)) {
	st := interrupt.Disable()
	adcHandler = fn
	interrupt.Restore(st)
}

func (rp2ADC) Start() {
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
}

func adcISR(interrupt.Interrupt) {
	var raw uint16
	for rp.ADC.FCS.Get()&rp.ADC_FCS_LEVEL_Msk != 0 {
		raw = uint16(rp.ADC.FIFO.Get() & 0x0FFF)
	}
	if adcHandler != nil {
		adcHandler(NormaliseRP2(raw))
	}
}

// ----------------------------- PWM -------------------------------------------

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

type rp2PWM struct {
	pin   machine.Pin
	ctrl  pwmCtrl
	ch    uint8
	top   uint16 // logical resolution
	hwTop uint32
}

func newRP2PWM(pin int) *rp2PWM {
	return &rp2PWM{
		pin:  machine.Pin(pin),
		ctrl: pwmGroupBySlice(uint8(pin>>1) & 7),
	}
}

func (p *rp2PWM) Configure(freqHz uint32, top uint16) error {
	if err := p.ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(freqHz)}); err != nil {
		return err
	}
	ch, err := p.ctrl.Channel(p.pin)
	if err != nil {
		return err
	}
	p.ch = ch
	p.top = mathx.Max(top, 1)
	p.hwTop = p.ctrl.Top()
	return nil
}

// Set scales from logical [0..top] to hardware [0..hwTop].
func (p *rp2PWM) Set(duty uint16) {
	if p.top == 0 {
		return
	}
	duty = mathx.Min(duty, p.top)
	p.ctrl.Set(p.ch, uint32(duty)*p.hwTop/uint32(p.top))
}

func (p *rp2PWM) Top() uint16 { return p.top }

// ----------------------------- Watchdog --------------------------------------

type rp2Watchdog struct{}

func (rp2Watchdog) Configure(timeoutMs uint32) error {
	return machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMs})
}
func (rp2Watchdog) Start() error { return machine.Watchdog.Start() }
func (rp2Watchdog) Update()      { machine.Watchdog.Update() }

// ----------------------------- GPIO ------------------------------------------

type rp2Pin struct{ p machine.Pin }

func (r rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r rp2Pin) Set(level bool) { r.p.Set(level) }

// ----------------------------- Log sink --------------------------------------

// uartSink drains a log ring to UART0 from its own goroutine so the
// foreground loop never waits on the line.
func uartSink(w Wiring) (*shmring.Ring, error) {
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: w.LogBaud,
		TX:       machine.Pin(w.LogTX),
		RX:       machine.Pin(w.LogRX),
	}); err != nil {
		return nil, err
	}
	ring := shmring.New(1024)
	go func() {
		var buf [64]byte
		for {
			n := ring.TryReadInto(buf[:])
			if n == 0 {
				<-ring.Readable()
				continue
			}
			_, _ = u.Write(buf[:n])
		}
	}()
	return ring, nil
}

// ----------------------------- Board -----------------------------------------

// NewBoard configures the shared buses and returns the Pico peripherals.
// Peripherals with bring-up ordering (PWM, ADC, USB, watchdog) are only
// constructed here and configured by the supervisor.
func NewBoard() (*Board, error) {
	w := Pico

	sda := machine.Pin(w.I2CSDA)
	scl := machine.Pin(w.I2CSCL)
	sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	if err := machine.I2C0.Configure(machine.I2CConfig{SCL: scl, SDA: sda, Frequency: w.I2CHz}); err != nil {
		return nil, err
	}
	machine.Pin(w.FanPWM).Configure(machine.PinConfig{Mode: machine.PinPWM})
	sink, err := uartSink(w)
	if err != nil {
		return nil, err
	}

	return &Board{
		Wiring:   w,
		Intr:     rp2Interrupts{},
		ADC:      rp2ADC{},
		Sleep:    rp2Sleeper{},
		PWM:      newRP2PWM(w.FanPWM),
		Watchdog: rp2Watchdog{},
		Debug:    rp2Pin{p: machine.Pin(w.DebugPin)},
		USB:      &rp2USB{},
		I2C:      machine.I2C0,
		Log:      sink,
	}, nil
}

// Boot runs bring-up attempts until one succeeds into the supervisor loop.
// A watchdog reset restarts the chip, which re-enters main and Boot.
func Boot(ctx context.Context, _ *Board, run BootFunc) uint32 {
	var boot uint32
	for ctx.Err() == nil {
		boot++
		if err := run(ctx, boot); err != nil {
			logx.Error("boot", "bring-up failed", logx.Uint("boot", boot), logx.Err(err))
			time.Sleep(retryDelay)
		}
	}
	return boot
}

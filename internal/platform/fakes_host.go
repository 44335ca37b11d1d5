//go:build !rp2040 && !rp2350

package platform

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fanmonitor-go/internal/halcore"
)

// ----------------------------- Interrupt guard -------------------------------

// HostInterrupts stands in for the interrupt mask with a mutex. The fake
// ADC takes it before running the conversion handler, so a foreground
// section between Disable and Restore never observes a handler mid-way.
// Sections must not nest on the host.
type HostInterrupts struct {
	mu sync.Mutex
}

func (h *HostInterrupts) Disable() halcore.IntrState {
	h.mu.Lock()
	return 1
}

func (h *HostInterrupts) Restore(halcore.IntrState) {
	h.mu.Unlock()
}

// ----------------------------- ADC -------------------------------------------

// FakeADC completes each conversion on its own goroutine after ConvTime,
// delivering the next queued reading (or the last one when the queue is
// empty) to the handler under the interrupt guard.
type FakeADC struct {
	Intr     *HostInterrupts
	ConvTime time.Duration

	mu         sync.Mutex
	handler    func(uint16)
	queue      []uint16
	last       uint16
	configured bool
	starts     atomic.Uint32
}

func (a *FakeADC) Configure() error {
	a.mu.Lock()
	a.configured = true
	a.mu.Unlock()
	return nil
}

func (a *FakeADC) Configured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configured
}

func (a *FakeADC) SetHandler(fn func(raw uint16)) {
	a.mu.Lock()
	a.handler = fn
	a.mu.Unlock()
}

// Push queues readings for upcoming conversions.
func (a *FakeADC) Push(raw ...uint16) {
	a.mu.Lock()
	a.queue = append(a.queue, raw...)
	a.mu.Unlock()
}

// Starts reports how many conversions were requested.
func (a *FakeADC) Starts() uint32 { return a.starts.Load() }

func (a *FakeADC) next() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) > 0 {
		a.last = a.queue[0]
		a.queue = a.queue[1:]
	}
	return a.last
}

func (a *FakeADC) Start() {
	a.starts.Add(1)
	raw := a.next()
	d := a.ConvTime
	go func() {
		if d > 0 {
			time.Sleep(d)
		}
		a.Fire(raw)
	}()
}

// Fire runs the conversion handler immediately, as the completion interrupt
// would.
func (a *FakeADC) Fire(raw uint16) {
	a.mu.Lock()
	fn := a.handler
	a.mu.Unlock()
	if fn == nil {
		return
	}
	st := a.Intr.Disable()
	fn(raw)
	a.Intr.Restore(st)
}

// HostSleeper polls done, yielding briefly in place of wait-for-interrupt.
type HostSleeper struct{}

func (HostSleeper) WaitFor(done func() bool) {
	for !done() {
		time.Sleep(50 * time.Microsecond)
	}
}

// ----------------------------- PWM -------------------------------------------

type FakePWM struct {
	mu     sync.Mutex
	freqHz uint32
	top    uint16
	duty   uint16
	writes []uint16
	err    error
}

// FailConfigure makes the next Configure return err.
func (p *FakePWM) FailConfigure(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *FakePWM) Configure(freqHz uint32, top uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		err := p.err
		p.err = nil
		return err
	}
	if top == 0 {
		top = 1
	}
	p.freqHz, p.top = freqHz, top
	return nil
}

func (p *FakePWM) Set(duty uint16) {
	p.mu.Lock()
	if duty > p.top {
		duty = p.top
	}
	p.duty = duty
	p.writes = append(p.writes, duty)
	p.mu.Unlock()
}

func (p *FakePWM) Top() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.top
}

func (p *FakePWM) Duty() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

func (p *FakePWM) FreqHz() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freqHz
}

// Writes returns every duty written so far.
func (p *FakePWM) Writes() []uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint16(nil), p.writes...)
}

// ----------------------------- Watchdog --------------------------------------

var errWatchdogNotConfigured = errors.New("watchdog: not configured")

// FakeWatchdog signals Expired when Update is not called within the
// configured timeout after Start. Re-arming after expiry takes a new
// Configure+Start, as after a real reset.
type FakeWatchdog struct {
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	expired chan struct{}
	fired   bool
	updates atomic.Uint32
	resets  atomic.Uint32
}

func (w *FakeWatchdog) Configure(timeoutMs uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timeout = time.Duration(timeoutMs) * time.Millisecond
	w.expired = make(chan struct{})
	w.fired = false
	return nil
}

func (w *FakeWatchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timeout == 0 || w.expired == nil || w.fired {
		return errWatchdogNotConfigured
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	exp := w.expired
	w.timer = time.AfterFunc(w.timeout, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.expired != exp || w.fired {
			return
		}
		w.fired = true
		w.timer = nil
		w.resets.Add(1)
		close(exp)
	})
	return nil
}

func (w *FakeWatchdog) Update() {
	w.updates.Add(1)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
	w.mu.Unlock()
}

// Expired is closed when the armed watchdog fires. It is nil before the
// first Configure.
func (w *FakeWatchdog) Expired() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Stop disarms the watchdog without firing.
func (w *FakeWatchdog) Stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

func (w *FakeWatchdog) Updates() uint32 { return w.updates.Load() }
func (w *FakeWatchdog) Resets() uint32  { return w.resets.Load() }

// ----------------------------- GPIO ------------------------------------------

type FakePin struct {
	mu      sync.Mutex
	number  int
	output  bool
	level   bool
	history []bool
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.output = true
	p.level = initial
	p.history = append(p.history, initial)
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.history = append(p.history, level)
	p.mu.Unlock()
}

func (p *FakePin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *FakePin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

// History returns every level driven since construction.
func (p *FakePin) History() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.history...)
}

func (p *FakePin) Number() int { return p.number }

// ----------------------------- I²C EEPROM ------------------------------------

// HostEEPROM emulates a 24Cxx part behind tinygo drivers.I2C: the first two
// written bytes set the word address, further written bytes are stored, and
// reads stream from the current address.
type HostEEPROM struct {
	mu   sync.Mutex
	Addr uint16
	mem  []byte
	ptr  int
	fail error
}

func NewHostEEPROM(addr uint16, size int) *HostEEPROM {
	m := make([]byte, size)
	for i := range m {
		m[i] = 0xFF
	}
	return &HostEEPROM{Addr: addr, mem: m}
}

// Fail makes every following transaction return err (nil clears it).
func (e *HostEEPROM) Fail(err error) {
	e.mu.Lock()
	e.fail = err
	e.mu.Unlock()
}

// Tx implements drivers.I2C.
func (e *HostEEPROM) Tx(addr uint16, w, r []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	if addr != e.Addr {
		return errors.New("i2c: no ack")
	}
	if len(w) >= 2 {
		e.ptr = (int(w[0])<<8 | int(w[1])) % len(e.mem)
		for _, b := range w[2:] {
			e.mem[e.ptr] = b
			e.ptr = (e.ptr + 1) % len(e.mem)
		}
	}
	for i := range r {
		r[i] = e.mem[e.ptr]
		e.ptr = (e.ptr + 1) % len(e.mem)
	}
	return nil
}

// Peek returns a copy of n bytes at off.
func (e *HostEEPROM) Peek(off, n int) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.mem[off:off+n]...)
}

// ----------------------------- Board -----------------------------------------

// Fakes holds the concrete host peripherals behind a Board.
type Fakes struct {
	Intr     *HostInterrupts
	ADC      *FakeADC
	PWM      *FakePWM
	Watchdog *FakeWatchdog
	Debug    *FakePin
	USB      *HostUSB
	EEPROM   *HostEEPROM
}

// NewFakes builds a host board wired like the Pico.
func NewFakes() *Fakes {
	intr := &HostInterrupts{}
	return &Fakes{
		Intr:     intr,
		ADC:      &FakeADC{Intr: intr, ConvTime: 100 * time.Microsecond},
		PWM:      &FakePWM{},
		Watchdog: &FakeWatchdog{},
		Debug:    NewFakePin(Pico.DebugPin),
		USB:      NewHostUSB(),
		EEPROM:   NewHostEEPROM(0x50, 4096),
	}
}

func (f *Fakes) Board() *Board {
	return &Board{
		Wiring:   Pico,
		Intr:     f.Intr,
		ADC:      f.ADC,
		Sleep:    HostSleeper{},
		PWM:      f.PWM,
		Watchdog: f.Watchdog,
		Debug:    f.Debug,
		USB:      f.USB,
		I2C:      f.EEPROM,
	}
}

// NewBoard returns a host board backed by fresh fakes.
func NewBoard() (*Board, error) {
	return NewFakes().Board(), nil
}

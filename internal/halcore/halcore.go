// Package halcore holds the hardware contracts the firmware services are
// written against. Concrete rp2 implementations and host fakes live in
// internal/platform.
package halcore

import (
	"tinygo.org/x/drivers"
)

// ---- Interrupt guard ----

// IntrState is the opaque mask saved by Disable.
type IntrState uintptr

// Interrupts masks the conversion-complete handler around foreground reads
// of shared state. Sections must not nest: the host guard is a mutex.
type Interrupts interface {
	Disable() IntrState
	Restore(IntrState)
}

// ---- ADC ----

// ADC runs one conversion per Start. When it completes the installed
// handler is invoked with interrupts masked (ISR context on hardware).
type ADC interface {
	Configure() error
	SetHandler(fn func(raw uint16))
	Start()
}

// Sleeper parks the caller until done reports true. done is evaluated with
// interrupts masked immediately before each sleep, so a handler that runs
// between the check and the sleep still wakes the caller: a pending
// interrupt ends wait-for-interrupt even while masked. done must be cheap
// and must not take the Interrupts guard.
type Sleeper interface {
	WaitFor(done func() bool)
}

// ---- PWM ----

type PWM interface {
	Configure(freqHz uint32, top uint16) error
	Set(duty uint16)
	Top() uint16
}

// ---- Watchdog ----

type Watchdog interface {
	Configure(timeoutMs uint32) error
	Start() error
	Update()
}

// ---- GPIO ----

type OutputPin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
}

// ---- I²C ----

// I2C is the subset we need (compatible with tinygo.org/x/drivers.I2C).
type I2C = drivers.I2C

// ---- USB ----

// FeatureHandler answers the single vendor feature report channel.
// Setup returns NoMsg when the data stage is to be served through
// Read/Write, or 0 when the request is not handled.
type FeatureHandler interface {
	Setup(p SetupPacket) uint8
	Read(buf []byte) int
	Write(data []byte) bool
}

// NoMsg tells the transport that the data stage is streamed through the
// handler's Read/Write calls.
const NoMsg uint8 = 0xFF

// USBTransport owns the device side of the bus. Poll is called from the
// foreground loop and is where control transfers are served.
type USBTransport interface {
	Init(h FeatureHandler, reportDescriptor []byte) error
	Disconnect()
	Connect()
	Poll()
}

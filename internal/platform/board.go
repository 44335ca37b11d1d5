// Package platform binds the halcore contracts to hardware. Builds for
// rp2040/rp2350 drive the real peripherals; every other build gets fakes
// that tests can steer.
package platform

import (
	"io"

	"fanmonitor-go/internal/halcore"
)

// Wiring is the board-level pin plan. Pin numbers are GPIO numbers.
type Wiring struct {
	Name     string
	FanPWM   int
	DebugPin int
	I2CSDA   int
	I2CSCL   int
	I2CHz    uint32
	LogTX    int
	LogRX    int
	LogBaud  uint32
}

// Pico is the reference board: fan on GP15, status LED on GP25, EEPROM on
// I2C0 (GP4/GP5), debug log on UART0 (GP0/GP1).
var Pico = Wiring{
	Name:     "pico",
	FanPWM:   15,
	DebugPin: 25,
	I2CSDA:   4,
	I2CSCL:   5,
	I2CHz:    400_000,
	LogTX:    0,
	LogRX:    1,
	LogBaud:  115_200,
}

// Board is the set of peripherals the firmware services need.
type Board struct {
	Wiring   Wiring
	Intr     halcore.Interrupts
	ADC      halcore.ADC
	Sleep    halcore.Sleeper
	PWM      halcore.PWM
	Watchdog halcore.Watchdog
	Debug    halcore.OutputPin
	USB      halcore.USBTransport
	I2C      halcore.I2C
	Log      io.Writer // nil keeps the default console sink
}

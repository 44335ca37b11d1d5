package types

// Configuration documents published retained on config/<key>.

type FanMode string

const (
	FanModeCurve FanMode = "curve" // duty follows every completed sample
	FanModeFixed FanMode = "fixed" // duty written once at bring-up
)

// Calibration anchors the duty curve in raw ADC counts.
type Calibration struct {
	RawLow  uint16 `json:"raw_low"`
	RawHigh uint16 `json:"raw_high"`
}

// FanConfig on "config/fan". Duty fields are pointers so that an explicit
// zero (fan off) differs from an absent field.
type FanConfig struct {
	Mode      FanMode     `json:"mode,omitempty"`
	FixedDuty *uint16     `json:"fixed_duty,omitempty"`
	MinDuty   *uint16     `json:"min_duty,omitempty"`
	MaxDuty   *uint16     `json:"max_duty,omitempty"`
	Top       uint16      `json:"top,omitempty"`
	FreqHz    uint32      `json:"freq_hz,omitempty"`
	Cal       Calibration `json:"cal,omitempty"`
	RampMs    uint32      `json:"ramp_ms,omitempty"`
	RampSteps uint16      `json:"ramp_steps,omitempty"`
}

// U16 returns a pointer to v for the optional config fields.
func U16(v uint16) *uint16 { return &v }

// SupervisorConfig on "config/supervisor".
type SupervisorConfig struct {
	WatchdogMs    uint32 `json:"watchdog_ms,omitempty"`
	SampleEveryMs uint32 `json:"sample_every_ms,omitempty"`
	ReenumerateMs uint32 `json:"reenumerate_ms,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`
}

// SamplerConfig on "config/sampler".
type SamplerConfig struct {
	Queue int `json:"queue,omitempty"` // ISR hand-off buffer depth
}

// StoreConfig on "config/store".
type StoreConfig struct {
	Backend  string `json:"backend,omitempty"`  // "memory" or "eeprom"
	I2CAddr  uint16 `json:"i2c_addr,omitempty"` // 7-bit device address
	Offset   uint16 `json:"offset,omitempty"`   // region start in the device
	PageSize uint16 `json:"page_size,omitempty"`
}

type HeartbeatConfig struct {
	IntervalMs uint32 `json:"interval_ms,omitempty"`
}

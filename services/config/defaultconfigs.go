package config

// Key: device ID. Val: raw JSON for that device.
const cfgPico = `{
  "fan": {
    "mode": "curve",
    "fixed_duty": 80,
    "min_duty": 80,
    "max_duty": 255,
    "top": 255,
    "freq_hz": 25000,
    "cal": {"raw_low": 292, "raw_high": 354}
  },
  "supervisor": {
    "watchdog_ms": 1000,
    "sample_every_ms": 1000,
    "reenumerate_ms": 300,
    "log_level": "info"
  },
  "sampler": {
    "queue": 4
  },
  "store": {
    "backend": "memory"
  }
}`

// cfgPicoEEPROM keeps the report region on a 24Cxx part on I2C0.
const cfgPicoEEPROM = `{
  "fan": {
    "mode": "curve",
    "ramp_ms": 500,
    "ramp_steps": 10
  },
  "supervisor": {
    "watchdog_ms": 1000,
    "sample_every_ms": 1000,
    "log_level": "info"
  },
  "store": {
    "backend": "eeprom",
    "i2c_addr": 80,
    "offset": 0,
    "page_size": 32
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico":        []byte(cfgPico),
	"pico-eeprom": []byte(cfgPicoEEPROM),
}

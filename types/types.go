package types

// ---- Supervisor state (retained on supervisor/state) ----

type Level string

const (
	LevelBooting Level = "booting"
	LevelRunning Level = "running"
	LevelStopped Level = "stopped"
)

type SupervisorState struct {
	Level  Level  `json:"level"`
	Boot   uint32 `json:"boot"`             // bring-up attempts since power-on
	Status string `json:"status,omitempty"` // short code, e.g. "watchdog_reset"
	TS     int64  `json:"ts_ms"`
}

// ---- Temperature (retained on sensor/temperature/value) ----

type TemperatureValue struct {
	Raw     uint16 `json:"raw"`
	DeciC   int32  `json:"deci_c"`
	Seq     uint32 `json:"seq"`
	Dropped uint32 `json:"dropped,omitempty"` // ISR hand-offs lost so far
	TS      int64  `json:"ts_ms"`
}

// ---- Fan (retained on fan/duty/value) ----

type DutyValue struct {
	Duty uint16  `json:"duty"`
	Top  uint16  `json:"top"`
	Raw  uint16  `json:"raw"` // sample that produced this duty
	Mode FanMode `json:"mode"`
	TS   int64   `json:"ts_ms"`
}

// ---- USB feature report (retained on usb/feature/status) ----

type Direction string

const (
	DirectionIn  Direction = "in"  // device to host (GET_REPORT)
	DirectionOut Direction = "out" // host to device (SET_REPORT)
)

type TransferStatus struct {
	Direction Direction `json:"direction"`
	Bytes     uint8     `json:"bytes"`
	Complete  bool      `json:"complete"` // all 128 bytes moved
	Error     string    `json:"error,omitempty"`
	Sessions  uint32    `json:"sessions"`
	TS        int64     `json:"ts_ms"`
}

// ---- Heartbeat (retained on heartbeat/summary) ----

type Heartbeat struct {
	UptimeMs  int64  `json:"uptime_ms"`
	Raw       uint16 `json:"raw"`
	DeciC     int32  `json:"deci_c"`
	Duty      uint16 `json:"duty"`
	Samples   uint32 `json:"samples"`
	Transfers uint32 `json:"transfers"`
}

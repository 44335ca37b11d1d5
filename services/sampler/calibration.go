package sampler

import "fanmonitor-go/x/mathx"

// Sensor table, raw counts against deci-°C.
const (
	RawM45 = 225
	Raw25  = 292
	Raw85  = 354
)

// DeciC converts a raw reading to tenths of a degree Celsius by linear
// interpolation over the sensor table, extrapolating past either end.
func DeciC(raw uint16) int32 {
	r := int32(raw)
	if r <= Raw25 {
		return mathx.MapI32(r, RawM45, Raw25, -450, 250)
	}
	return mathx.MapI32(r, Raw25, Raw85, 250, 850)
}

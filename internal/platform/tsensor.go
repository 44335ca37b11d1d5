package platform

import "fanmonitor-go/x/mathx"

// The firmware's temperature scale is the 10-bit reading of an on-die sensor
// that produces 292 counts at 25 °C and 354 counts at 85 °C (67 counts for
// the 70 °C below 25 °C). Other sensors are normalised onto that scale so
// the duty curve and the deci-°C table stay board-independent.
const (
	scaleRaw25   = 292
	scaleRaw85   = 354
	scaleRawM45  = 225
	scaleDeci25  = 250
	scaleDeci85  = 850
	scaleDeciM45 = -450
)

// rp2DeciC converts a 12-bit RP2040 temperature-sensor reading to deci-°C:
// T = 27 - (V - 0.706) / 0.001721 with a 3.3 V reference.
func rp2DeciC(raw12 uint16) int32 {
	uv := int32(int64(raw12) * 3_300_000 / 4096)
	return 270 - mathx.RoundDivI32((uv-706_000)*10, 1721)
}

// scaleRaw maps deci-°C onto the firmware's raw scale.
func scaleRaw(deciC int32) uint16 {
	var raw int32
	if deciC >= scaleDeci25 {
		raw = mathx.MapI32(deciC, scaleDeci25, scaleDeci85, scaleRaw25, scaleRaw85)
	} else {
		raw = mathx.MapI32(deciC, scaleDeciM45, scaleDeci25, scaleRawM45, scaleRaw25)
	}
	return uint16(mathx.Clamp(raw, 0, 1023))
}

// NormaliseRP2 converts an RP2040 12-bit sensor reading to the firmware scale.
func NormaliseRP2(raw12 uint16) uint16 {
	return scaleRaw(rp2DeciC(raw12))
}

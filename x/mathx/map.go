package mathx

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with 32-bit intermediates.
// Clamps to out range if input is outside. Requires outMin <= outMax.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax <= inMin {
		return outMin
	}
	if outMax < outMin {
		return outMin
	}
	if x < inMin {
		return outMin
	}
	if x > inMax {
		return outMax
	}
	num := uint32(x-inMin) * uint32(outMax-outMin)
	den := uint32(inMax - inMin)
	return uint16(uint32(outMin) + num/den)
}

// MapI32 maps x from [inMin,inMax] onto [outMin,outMax] without clamping,
// rounding to nearest. Either output bound may be the larger one.
func MapI32(x, inMin, inMax, outMin, outMax int32) int32 {
	if inMax == inMin {
		return outMin
	}
	return outMin + RoundDivI32((x-inMin)*(outMax-outMin), inMax-inMin)
}

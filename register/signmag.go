package register

const (
	SignBit = 1 << 10
	MagMask = SignBit - 1
)

// EncodeSignMag encodes v with its magnitude in bits 0-9
// and bit 10 set for negative values. Magnitudes beyond
// MagMask saturate.
func EncodeSignMag(v int) uint16 {
	neg := v < 0
	if neg {
		v = -v
	}
	if v > MagMask {
		v = MagMask
	}
	u := uint16(v)
	if neg {
		u |= SignBit
	}
	return u
}

func DecodeSignMag(u uint16) int {
	v := int(u & MagMask)
	if u&SignBit != 0 {
		v = -v
	}
	return v
}

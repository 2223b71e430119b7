package register

import (
	"strconv"
)

// Format renders a register value for display.
func Format(r Reg, v uint16) string {
	if r.SignMag {
		return strconv.Itoa(DecodeSignMag(v))
	}
	s := strconv.FormatUint(uint64(v), 10)
	if r.Width > 1 {
		s += " (0x" + strconv.FormatUint(uint64(v), 16) + ")"
	}
	return s
}

// Parse parses a value to be written to r. Signed values of
// sign-magnitude registers are encoded accordingly.
func Parse(r Reg, s string) (v uint16, err error) {
	if r.SignMag {
		i, err1 := strconv.ParseInt(s, 0, 16)
		if err1 != nil {
			err = err1
			return
		}
		if i < -MagMask || i > MagMask {
			err = ErrRange
			return
		}
		return EncodeSignMag(int(i)), nil
	}
	u, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return
	}
	if uint16(u) > r.Max() {
		err = ErrRange
		return
	}
	return uint16(u), nil
}

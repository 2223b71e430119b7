package register

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knieriem/robotis"
)

type request struct {
	op     robotis.Opcode
	reg    byte
	params []byte
}

type fakeDevice struct {
	requests []request
	reply    []byte
	err      error
}

func (d *fakeDevice) Addr() byte { return 1 }

func (d *fakeDevice) Request(op robotis.Opcode, reg byte, params []byte, opts ...robotis.ReqOption) ([]byte, error) {
	d.requests = append(d.requests, request{op, reg, params})
	return d.reply, d.err
}

func TestRead(t *testing.T) {
	testCases := []struct {
		name   string
		reg    Reg
		reply  []byte
		expect uint16
		params []byte
	}{
		{"position little endian", PresentPosition, []byte{0xff, 0x08}, 0x08ff, []byte{2}},
		{"temperature", PresentTemperature, []byte{41}, 41, []byte{1}},
		{"moving", Moving, []byte{1}, 1, []byte{1}},
		{"gain", PGain, []byte{32}, 32, []byte{1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDevice{reply: tc.reply}
			v, err := Read(d, tc.reg)
			require.NoError(t, err)
			require.Equal(t, tc.expect, v)
			require.Equal(t, []request{{robotis.OpRead, tc.reg.Addr, tc.params}}, d.requests)
		})
	}
}

func TestReadShortReply(t *testing.T) {
	d := &fakeDevice{reply: []byte{0xff}}
	_, err := Read(d, PresentPosition)
	require.True(t, robotis.MsgInvalid(err))
}

func TestReadDeviceError(t *testing.T) {
	d := &fakeDevice{err: robotis.DeviceError(0x20)}
	_, err := Read(d, PresentLoad)
	require.Equal(t, robotis.DeviceError(0x20), err)
}

func TestWrite(t *testing.T) {
	testCases := []struct {
		name   string
		reg    Reg
		value  uint16
		params []byte
	}{
		{"goal position", GoalPosition, 0x08ff, []byte{0xff, 0x08}},
		{"continuous turn", CCWLimit, 0, []byte{0, 0}},
		{"angle mode", CCWLimit, AngleLimitMax, []byte{0xff, 0x03}},
		{"torque", TorqueEnable, 1, []byte{1}},
		{"id", DeviceAddr, 7, []byte{7}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDevice{}
			require.NoError(t, Write(d, tc.reg, tc.value))
			require.Equal(t, []request{{robotis.OpWrite, tc.reg.Addr, tc.params}}, d.requests)
		})
	}
}

func TestAccess(t *testing.T) {
	d := &fakeDevice{}
	_, err := Read(d, GoalPosition)
	require.ErrorIs(t, err, ErrAccess)
	require.ErrorIs(t, Write(d, PresentPosition, 1), ErrAccess)
	require.ErrorIs(t, Write(d, TorqueEnable, 0x100), ErrRange)
	require.Empty(t, d.requests)
}

func TestRawLength(t *testing.T) {
	d := &fakeDevice{}
	_, err := ReadRaw(d, 0x24, 0)
	require.ErrorIs(t, err, ErrRange)
	require.Empty(t, d.requests)
}

func TestSignMag(t *testing.T) {
	testCases := []struct {
		v      int
		expect uint16
	}{
		{0, 0},
		{540, 540},
		{-540, 540 | SignBit},
		{1023, 1023},
		{-1023, 1023 | SignBit},
		{5000, MagMask},
		{-5000, MagMask | SignBit},
	}
	for _, tc := range testCases {
		u := EncodeSignMag(tc.v)
		require.Equal(t, tc.expect, u, "encode %d", tc.v)
	}
	for v := -MagMask; v <= MagMask; v++ {
		require.Equal(t, v, DecodeSignMag(EncodeSignMag(v)))
		if v > 0 {
			require.Equal(t, uint16(SignBit), EncodeSignMag(v)^EncodeSignMag(-v))
		}
	}
}

func TestTable(t *testing.T) {
	list := All()
	require.Len(t, list, 16)
	for i := 1; i < len(list); i++ {
		require.Less(t, list[i-1].Addr, list[i].Addr)
	}

	r, ok := Lookup("0x24")
	require.True(t, ok)
	require.Equal(t, PresentPosition, r)
	r, ok = Lookup("Goal-Position")
	require.True(t, ok)
	require.Equal(t, GoalPosition, r)
	_, ok = Lookup("0x07")
	require.False(t, ok)
	_, ok = Lookup("speed")
	require.False(t, ok)

	require.Equal(t, "R/W", MultiTurnOffset.Access.String())
	require.Equal(t, "position@0x24", PresentPosition.String())
}

func TestFormatParse(t *testing.T) {
	require.Equal(t, "2303 (0x8ff)", Format(PresentPosition, 0x8ff))
	require.Equal(t, "41", Format(PresentTemperature, 41))
	require.Equal(t, "-12", Format(PresentLoad, 12|SignBit))

	v, err := Parse(GoalVelocity, "-540")
	require.NoError(t, err)
	require.Equal(t, uint16(540|SignBit), v)
	v, err = Parse(GoalPosition, "0x8ff")
	require.NoError(t, err)
	require.Equal(t, uint16(0x8ff), v)
	_, err = Parse(TorqueEnable, "256")
	require.ErrorIs(t, err, ErrRange)
	_, err = Parse(GoalVelocity, "2000")
	require.ErrorIs(t, err, ErrRange)
}

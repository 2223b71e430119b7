// Package register describes the control table of a servo and
// provides typed access to it.
package register

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/knieriem/robotis"
)

var ByteOrder = binary.LittleEndian

var (
	ErrAccess = errors.New("register: access not permitted")
	ErrRange  = errors.New("register: value out of range")
)

type Access uint8

const (
	R Access = 1 << iota
	W

	RW = R | W
)

func (a Access) String() string {
	switch a {
	case R:
		return "R"
	case W:
		return "W"
	case RW:
		return "R/W"
	}
	return "-"
}

// Reg describes a register of the control table.
type Reg struct {
	Name   string
	Addr   byte
	Width  int
	Access Access

	// SignMag marks values using bit 10 as sign flag.
	SignMag bool
}

func (r Reg) Max() uint16 {
	if r.Width == 1 {
		return 0xFF
	}
	return 0xFFFF
}

func (r Reg) String() string {
	return fmt.Sprintf("%s@0x%02x", r.Name, r.Addr)
}

var (
	DeviceAddr         = Reg{Name: "id", Addr: 0x03, Width: 1, Access: W}
	ReturnDelay        = Reg{Name: "return-delay", Addr: 0x05, Width: 1, Access: R}
	CWLimit            = Reg{Name: "cw-limit", Addr: 0x06, Width: 2, Access: W}
	CCWLimit           = Reg{Name: "ccw-limit", Addr: 0x08, Width: 2, Access: W}
	MultiTurnOffset    = Reg{Name: "multi-turn-offset", Addr: 0x14, Width: 2, Access: RW}
	TorqueEnable       = Reg{Name: "torque-enable", Addr: 0x18, Width: 1, Access: W}
	DGain              = Reg{Name: "d-gain", Addr: 0x1A, Width: 1, Access: RW}
	IGain              = Reg{Name: "i-gain", Addr: 0x1B, Width: 1, Access: RW}
	PGain              = Reg{Name: "p-gain", Addr: 0x1C, Width: 1, Access: RW}
	GoalPosition       = Reg{Name: "goal-position", Addr: 0x1E, Width: 2, Access: W}
	GoalVelocity       = Reg{Name: "goal-velocity", Addr: 0x20, Width: 2, Access: W, SignMag: true}
	PresentPosition    = Reg{Name: "position", Addr: 0x24, Width: 2, Access: R}
	PresentLoad        = Reg{Name: "load", Addr: 0x28, Width: 2, Access: R, SignMag: true}
	PresentVoltage     = Reg{Name: "voltage", Addr: 0x2A, Width: 1, Access: R}
	PresentTemperature = Reg{Name: "temperature", Addr: 0x2B, Width: 1, Access: R}
	Moving             = Reg{Name: "moving", Addr: 0x2E, Width: 1, Access: R}
)

// AngleLimitMax is the CCW limit value restoring angle mode.
const AngleLimitMax = 0x3FF

var table = []Reg{
	DeviceAddr,
	ReturnDelay,
	CWLimit,
	CCWLimit,
	MultiTurnOffset,
	TorqueEnable,
	DGain,
	IGain,
	PGain,
	GoalPosition,
	GoalVelocity,
	PresentPosition,
	PresentLoad,
	PresentVoltage,
	PresentTemperature,
	Moving,
}

// All returns the control table ordered by address.
func All() []Reg {
	return append([]Reg(nil), table...)
}

// Lookup finds a register by name or by address,
// which may be given in any notation strconv.ParseUint accepts.
func Lookup(s string) (r Reg, ok bool) {
	if u, err := strconv.ParseUint(s, 0, 8); err == nil {
		for _, r = range table {
			if r.Addr == byte(u) {
				return r, true
			}
		}
		return Reg{}, false
	}
	s = strings.ToLower(s)
	for _, r = range table {
		if r.Name == s {
			return r, true
		}
	}
	return Reg{}, false
}

// Read reads the value of r from d.
func Read(d robotis.Device, r Reg, opts ...robotis.ReqOption) (v uint16, err error) {
	if r.Access&R == 0 {
		err = fmt.Errorf("%w: read %s", ErrAccess, r.Name)
		return
	}
	data, err := ReadRaw(d, r.Addr, r.Width, opts...)
	if err != nil {
		return
	}
	if r.Width == 1 {
		return uint16(data[0]), nil
	}
	return ByteOrder.Uint16(data), nil
}

// Write writes v to r on d.
func Write(d robotis.Device, r Reg, v uint16, opts ...robotis.ReqOption) error {
	if r.Access&W == 0 {
		return fmt.Errorf("%w: write %s", ErrAccess, r.Name)
	}
	if v > r.Max() {
		return fmt.Errorf("%w: %s = %d", ErrRange, r.Name, v)
	}
	return WriteRaw(d, r.Addr, Encode(r, v), opts...)
}

// Encode returns the parameter bytes of v written to r.
func Encode(r Reg, v uint16) []byte {
	if r.Width == 1 {
		return []byte{byte(v)}
	}
	b := make([]byte, 2)
	ByteOrder.PutUint16(b, v)
	return b
}

// ReadRaw reads n bytes starting at addr without consulting the table.
func ReadRaw(d robotis.Device, addr byte, n int, opts ...robotis.ReqOption) (data []byte, err error) {
	if n < 1 || n > 0xFF {
		err = fmt.Errorf("%w: read length %d", ErrRange, n)
		return
	}
	data, err = d.Request(robotis.OpRead, addr, []byte{byte(n)}, opts...)
	if err != nil {
		return
	}
	if len(data) != n {
		err = robotis.NewInvalidLen(robotis.MsgContextData, len(data), n)
	}
	return
}

// WriteRaw writes data starting at addr without consulting the table.
func WriteRaw(d robotis.Device, addr byte, data []byte, opts ...robotis.ReqOption) error {
	_, err := d.Request(robotis.OpWrite, addr, data, opts...)
	return err
}

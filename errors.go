package robotis

import (
	"errors"
	"fmt"
	"strconv"
)

type Error string

func (e Error) Error() string {
	return "robotis: " + string(e)
}

var ErrTimeout = Error("timeout")
var ErrHeader = Error("invalid reply header")
var ErrChecksum = Error("checksum error")
var ErrNoBus = Error("no bus connection")
var ErrInvalidAddr = Error("invalid device address")
var ErrMaxReqLenExceeded = Error("max request length exceeded")

// DeviceError carries the raw, non-zero error byte of a reply.
// The bits are not interpreted.
type DeviceError uint8

func (x DeviceError) Error() string {
	return "robotis: device error 0x" + strconv.FormatUint(uint64(x), 16)
}

// Code returns the raw error byte.
func (x DeviceError) Code() uint8 {
	return uint8(x)
}

// MismatchError reports a reply echoing an id other than
// the address the request was sent to.
type MismatchError struct {
	Want byte
	Have byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("robotis: id mismatch (expected: %d, got: %d)", e.Want, e.Have)
}

type InvalidLenError struct {
	MsgContext
	Len         int
	ExpectedLen []int
}

type MsgContext string

const (
	MsgContextFrame  MsgContext = "frame"
	MsgContextLength MsgContext = "length field"
	MsgContextData   MsgContext = "data part"
)

func NewInvalidLen(ctx MsgContext, have int, want ...int) error {
	return &InvalidLenError{MsgContext: ctx, Len: have, ExpectedLen: want}
}

func (e *InvalidLenError) Error() string {
	if e.MsgContext == "" {
		return "robotis: invalid length (unspecified)"
	}
	if e.TooLong() {
		return fmt.Sprintf("robotis: %s too long (have %d, want %d)", e.MsgContext, e.Len, e.ExpectedLen[0])
	}
	if e.TooShort() {
		return fmt.Sprintf("robotis: %s too short (have %d, want %d)", e.MsgContext, e.Len, e.ExpectedLen[0])
	}
	return fmt.Sprintf("robotis: invalid %s (have %d, want %v)", e.MsgContext, e.Len, e.ExpectedLen)
}

func (e *InvalidLenError) TooLong() bool {
	return len(e.ExpectedLen) == 1 && e.Len > e.ExpectedLen[0]
}

func (e *InvalidLenError) TooShort() bool {
	return len(e.ExpectedLen) == 1 && e.Len < e.ExpectedLen[0]
}

// MsgInvalid reports whether err is a framing error, i.e.
// the reply could not be attributed to the request.
func MsgInvalid(err error) bool {
	var le *InvalidLenError
	if errors.As(err, &le) {
		return true
	}
	var me *MismatchError
	if errors.As(err, &me) {
		return true
	}
	return errors.Is(err, ErrHeader) || errors.Is(err, ErrChecksum)
}

// IsDeviceError reports whether err carries a device error byte.
func IsDeviceError(err error) (code uint8, ok bool) {
	var x DeviceError
	if errors.As(err, &x) {
		return x.Code(), true
	}
	return 0, false
}

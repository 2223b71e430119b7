package capture

import (
	"time"
)

// Event is one frame as seen by the host.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// Session identifies the Bus instance that captured the event.
	Session string `cbor:"2,keyasint"`

	Bus       string    `cbor:"3,keyasint,omitempty"`
	Direction Direction `cbor:"4,keyasint"`

	// Addr is the device address the transaction was sent to.
	Addr  uint8  `cbor:"5,keyasint"`
	Frame []byte `cbor:"6,keyasint,omitempty"`
	Error string `cbor:"7,keyasint,omitempty"`
}

// Direction indicates the direction of a frame.
type Direction uint8

const (
	// DirectionOut is an instruction packet sent by the host.
	DirectionOut Direction = 0
	// DirectionIn is a status packet received from a device.
	DirectionIn Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

package robotis

import (
	"errors"
)

// Device is a bus participant at a fixed address.
type Device interface {
	Addr() byte
	Request(op Opcode, reg byte, params []byte, opts ...ReqOption) ([]byte, error)
}

type addressedDevice struct {
	addr byte
	bus  *Bus
}

// Device returns a view of b restricted to addr.
func (b *Bus) Device(addr byte) Device {
	return &addressedDevice{addr: addr, bus: b}
}

func (d *addressedDevice) Addr() byte {
	return d.addr
}

func (d *addressedDevice) Request(op Opcode, reg byte, params []byte, opts ...ReqOption) ([]byte, error) {
	return d.bus.Request(d.addr, op, reg, params, opts...)
}

type DeviceTestFunc func(addr byte, d Device) error

// PingTest is a DeviceTestFunc that pings each address.
func PingTest(bus *Bus, found func(addr byte)) DeviceTestFunc {
	return func(addr byte, d Device) error {
		err := bus.Ping(addr)
		if _, ok := IsDeviceError(err); (err == nil || ok) && found != nil {
			found(addr)
		}
		return err
	}
}

// ScanDevices calls test for each address in [addrMin, addrMax].
// Timeouts and invalid replies are skipped, other errors
// stop the scan.
func ScanDevices(bus *Bus, addrMin, addrMax byte, test DeviceTestFunc) (err error) {
	if addrMin < MinAddr {
		addrMin = MinAddr
	}
	if addrMax > MaxAddr {
		addrMax = MaxAddr
	}
	for a := int(addrMin); a <= int(addrMax); a++ {
		d := bus.Device(byte(a))
		err = test(d.Addr(), d)
		if err != nil {
			if errors.Is(err, ErrTimeout) || MsgInvalid(err) {
				err = nil
				continue
			}
			if _, ok := IsDeviceError(err); ok {
				// it answered
				err = nil
				continue
			}
			break
		}
	}
	return
}

// Package bussim simulates servos answering on a bus. It
// implements robotis.NetConn and is meant for tests and for
// running the tools without hardware.
package bussim

import (
	"sync"
	"time"

	"github.com/knieriem/robotis"
	"github.com/knieriem/robotis/register"
)

type Device struct {
	Mem [256]byte

	// Err is reported in every reply if non-zero.
	Err byte

	// MovingPolls is the number of reads of the moving flag
	// reporting motion after a goal position has been written.
	// A negative value makes the device move forever.
	MovingPolls int

	pending int
}

func (d *Device) Uint16(addr byte) uint16 {
	return register.ByteOrder.Uint16(d.Mem[addr:])
}

func (d *Device) PutUint16(addr byte, v uint16) {
	register.ByteOrder.PutUint16(d.Mem[addr:], v)
}

type Bus struct {
	mu      sync.Mutex
	devices map[byte]*Device
	in      []byte
	frames  [][]byte
}

func New() *Bus {
	return &Bus{devices: make(map[byte]*Device)}
}

// Add attaches a device at id, initialized with plausible
// control table contents.
func (b *Bus) Add(id byte) *Device {
	d := new(Device)
	d.Mem[register.DeviceAddr.Addr] = id
	d.Mem[register.ReturnDelay.Addr] = 250
	d.PutUint16(register.CCWLimit.Addr, register.AngleLimitMax)
	d.PutUint16(register.PresentPosition.Addr, 0x7FF)
	d.PutUint16(register.GoalPosition.Addr, 0x7FF)
	d.Mem[register.PGain.Addr] = 32
	d.Mem[register.PresentVoltage.Addr] = 120
	d.Mem[register.PresentTemperature.Addr] = 38

	b.mu.Lock()
	b.devices[id] = d
	b.mu.Unlock()
	return d
}

func (b *Bus) Device(id byte) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices[id]
}

func (b *Bus) Name() string {
	return "sim"
}

// Frames returns the instruction packets written so far.
func (b *Bus) Frames() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.frames...)
}

// Reset forgets the recorded frames.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.frames = nil
	b.mu.Unlock()
}

func (b *Bus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, append([]byte(nil), p...))
	if len(p) < robotis.HeaderLen+2 || p[0] != 0xFF || p[1] != 0xFF {
		return len(p), nil
	}
	id := p[2]
	n := robotis.HeaderLen + int(p[3])
	if n > len(p) || p[3] < 2 {
		return len(p), nil
	}
	body := p[robotis.HeaderLen : n-1]

	if id == robotis.BroadcastAddr {
		for _, d := range b.devices {
			d.exec(body)
		}
		return len(p), nil
	}
	d, ok := b.devices[id]
	if !ok {
		return len(p), nil
	}
	data := d.exec(body)
	if newID := d.Mem[register.DeviceAddr.Addr]; newID != id {
		delete(b.devices, id)
		b.devices[newID] = d
	}
	b.in = append(b.in, robotis.EncodeStatus(id, d.Err, data)...)
	return len(p), nil
}

func (d *Device) exec(body []byte) (data []byte) {
	switch robotis.Opcode(body[0]) {
	case robotis.OpRead:
		if len(body) < 3 {
			return
		}
		addr, n := int(body[1]), int(body[2])
		if addr+n > len(d.Mem) {
			n = len(d.Mem) - addr
		}
		data = append(data, d.Mem[addr:addr+n]...)
		if addr <= int(register.Moving.Addr) && int(register.Moving.Addr) < addr+n {
			d.polled()
		}
	case robotis.OpWrite:
		if len(body) < 2 {
			return
		}
		addr := int(body[1])
		copy(d.Mem[addr:], body[2:])
		goal := int(register.GoalPosition.Addr)
		if addr <= goal && goal < addr+len(body)-2 {
			d.startMotion()
		}
	}
	return
}

func (d *Device) startMotion() {
	if d.MovingPolls == 0 {
		d.finishMotion()
		return
	}
	d.Mem[register.Moving.Addr] = 1
	d.pending = d.MovingPolls
}

func (d *Device) polled() {
	if d.pending > 0 {
		d.pending--
		if d.pending == 0 {
			d.finishMotion()
		}
	}
}

func (d *Device) finishMotion() {
	d.Mem[register.Moving.Addr] = 0
	d.PutUint16(register.PresentPosition.Addr, d.Uint16(register.GoalPosition.Addr))
}

func (b *Bus) ReadFull(p []byte, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.in) < len(p) {
		return robotis.ErrTimeout
	}
	n := copy(p, b.in)
	b.in = b.in[n:]
	return nil
}

func (b *Bus) Flush() {
	b.mu.Lock()
	b.in = nil
	b.mu.Unlock()
}

var _ robotis.NetConn = (*Bus)(nil)

// Package servo converts between physical units and register
// values of a single servo and drives its motion.
package servo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/knieriem/robotis"
	"github.com/knieriem/robotis/register"
	"github.com/knieriem/robotis/settings"
)

// RPMPerUnit is the speed represented by one unit of the goal
// velocity register.
const RPMPerUnit = 0.111

type Servo struct {
	id          byte
	bus         *robotis.Bus
	dev         robotis.Device
	settings    settings.Settings
	returnDelay time.Duration
}

// New attaches to the servo at id on bus. The device is probed
// before its settings are resolved from src, which may be nil.
func New(bus *robotis.Bus, id byte, src settings.Source) (*Servo, error) {
	if bus == nil {
		return nil, robotis.ErrNoBus
	}
	if id < robotis.MinAddr || id > robotis.MaxAddr {
		return nil, fmt.Errorf("%w: %d", robotis.ErrInvalidAddr, id)
	}
	s := &Servo{id: id, bus: bus, dev: bus.Device(id)}

	_, err := register.ReadRaw(s.dev, register.DeviceAddr.Addr, 1)
	if err != nil {
		return nil, fmt.Errorf("servo %d: no response: %w", id, err)
	}
	d, err := register.Read(s.dev, register.ReturnDelay)
	if err != nil {
		return nil, fmt.Errorf("servo %d: %w", id, err)
	}
	s.returnDelay = time.Duration(d) * 2 * time.Microsecond

	st, outcome := settings.Resolve(src, id)
	if outcome.UsesDefaults() {
		glog.Warningf("servo %d: %v, using default settings", id, outcome)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("servo %d: %w", id, err)
	}
	s.settings = st
	return s, nil
}

func (s *Servo) ID() byte {
	return s.id
}

func (s *Servo) Bus() *robotis.Bus {
	return s.bus
}

func (s *Servo) Settings() settings.Settings {
	return s.settings
}

// ReturnDelay reports the delay the device waits before replying,
// as read during New.
func (s *Servo) ReturnDelay() time.Duration {
	return s.returnDelay
}

// EncoderForAngle returns the unclamped encoder target of angle.
func (s *Servo) EncoderForAngle(angle float64) int {
	if s.settings.Flipped {
		angle = -angle
	}
	return int(math.Round(angle/s.settings.RadPerEnc)) + s.settings.HomeEncoder
}

func (s *Servo) AngleForEncoder(enc int) float64 {
	a := float64(enc-s.settings.HomeEncoder) * s.settings.RadPerEnc
	if s.settings.Flipped {
		a = -a
	}
	return a
}

// AngVelToReg converts an angular velocity in rad/s into the
// sign-magnitude value of the goal velocity register.
func AngVelToReg(v float64) uint16 {
	rpm := v / (2 * math.Pi) * 60
	return register.EncodeSignMag(int(math.Round(rpm / RPMPerUnit)))
}

func (s *Servo) ReadEncoder() (int, error) {
	v, err := register.Read(s.dev, register.PresentPosition)
	return int(v), err
}

// ReadAngle returns the present angle in rad.
func (s *Servo) ReadAngle() (float64, error) {
	enc, err := s.ReadEncoder()
	if err != nil {
		return 0, err
	}
	return s.AngleForEncoder(enc), nil
}

// SetAngVel sets the goal velocity in rad/s. Magnitudes beyond
// the register's range saturate at 1023 units (about 11.9 rad/s).
func (s *Servo) SetAngVel(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: %s = NaN", register.ErrRange, register.GoalVelocity.Name)
	}
	return register.Write(s.dev, register.GoalVelocity, AngVelToReg(v))
}

// MoveToEncoder moves to the encoder position n, clamped into
// the range the servo supports.
func (s *Servo) MoveToEncoder(n int) error {
	if n < 0 {
		n = 0
	} else if n > s.settings.MaxEncoder {
		n = s.settings.MaxEncoder
	}
	return register.Write(s.dev, register.GoalPosition, uint16(n))
}

// MoveBy moves delta encoder ticks away from the present position.
func (s *Servo) MoveBy(delta int) error {
	enc, err := s.ReadEncoder()
	if err != nil {
		return err
	}
	return s.MoveToEncoder(enc + delta)
}

func (s *Servo) IsMoving() (bool, error) {
	v, err := register.Read(s.dev, register.Moving)
	return v != 0, err
}

// ReadVoltage returns the supply voltage in V.
func (s *Servo) ReadVoltage() (float64, error) {
	v, err := register.Read(s.dev, register.PresentVoltage)
	return float64(v) / 10, err
}

// ReadTemperature returns the internal temperature in °C.
func (s *Servo) ReadTemperature() (int, error) {
	v, err := register.Read(s.dev, register.PresentTemperature)
	return int(v), err
}

// ReadLoad returns the present load. The device reports loads in
// CW direction with bit 10 set; these are returned as positive
// values.
func (s *Servo) ReadLoad() (int, error) {
	v, err := register.Read(s.dev, register.PresentLoad)
	if err != nil {
		return 0, err
	}
	return -register.DecodeSignMag(v), nil
}

func (s *Servo) EnableTorque() error {
	return register.Write(s.dev, register.TorqueEnable, 1)
}

func (s *Servo) DisableTorque() error {
	return register.Write(s.dev, register.TorqueEnable, 0)
}

func (s *Servo) ReadPGain() (int, error) { return s.readGain(register.PGain) }
func (s *Servo) ReadIGain() (int, error) { return s.readGain(register.IGain) }
func (s *Servo) ReadDGain() (int, error) { return s.readGain(register.DGain) }

// WritePGain sets the proportional gain. Values <= 0 are ignored,
// as are those of WriteIGain and WriteDGain.
func (s *Servo) WritePGain(v int) error { return s.writeGain(register.PGain, v) }
func (s *Servo) WriteIGain(v int) error { return s.writeGain(register.IGain, v) }
func (s *Servo) WriteDGain(v int) error { return s.writeGain(register.DGain, v) }

func (s *Servo) readGain(r register.Reg) (int, error) {
	v, err := register.Read(s.dev, r)
	return int(v), err
}

func (s *Servo) writeGain(r register.Reg, v int) error {
	if v <= 0 {
		return nil
	}
	if v > int(r.Max()) {
		return fmt.Errorf("%w: %s = %d", register.ErrRange, r.Name, v)
	}
	return register.Write(s.dev, r, uint16(v))
}

// InitContTurn switches to continuous rotation mode.
func (s *Servo) InitContTurn() error {
	return register.Write(s.dev, register.CCWLimit, 0)
}

// KillContTurn restores angle mode.
func (s *Servo) KillContTurn() error {
	return register.Write(s.dev, register.CCWLimit, register.AngleLimitMax)
}

func (s *Servo) SetCWLimit(enc int) error {
	return s.writeLimit(register.CWLimit, enc)
}

func (s *Servo) SetCCWLimit(enc int) error {
	return s.writeLimit(register.CCWLimit, enc)
}

func (s *Servo) writeLimit(r register.Reg, enc int) error {
	if enc < 0 || enc > s.settings.MaxEncoder {
		return fmt.Errorf("%w: %s = %d", register.ErrRange, r.Name, enc)
	}
	return register.Write(s.dev, r, uint16(enc))
}

// ReadMultiOffset returns the multi-turn offset, a signed
// value in two's complement.
func (s *Servo) ReadMultiOffset() (int, error) {
	v, err := register.Read(s.dev, register.MultiTurnOffset)
	return int(int16(v)), err
}

func (s *Servo) SetMultiOffset(off int) error {
	if off < math.MinInt16 || off > math.MaxInt16 {
		return fmt.Errorf("%w: %s = %d", register.ErrRange, register.MultiTurnOffset.Name, off)
	}
	return register.Write(s.dev, register.MultiTurnOffset, uint16(int16(off)))
}

// WriteID assigns a new bus address to the servo. The Servo
// keeps using the new address afterwards.
func (s *Servo) WriteID(id byte) error {
	if id < robotis.MinAddr || id > robotis.MaxAddr {
		return fmt.Errorf("%w: %d", robotis.ErrInvalidAddr, id)
	}
	err := register.Write(s.dev, register.DeviceAddr, uint16(id))
	if err != nil {
		// some firmware answers from the new address already
		var me *robotis.MismatchError
		if !errors.As(err, &me) || me.Have != id {
			return err
		}
	}
	s.id = id
	s.dev = s.bus.Device(id)
	return nil
}

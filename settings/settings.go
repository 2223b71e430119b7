// Package settings resolves the calibration of a servo: the
// encoder position of angle zero, travel limits, direction and
// speed cap.
package settings

import (
	"errors"
	"fmt"
	"math"
)

// Settings is the fully populated calibration of one servo.
type Settings struct {
	HomeEncoder int     // encoder value of angle zero
	MaxEncoder  int     // highest encoder value
	RadPerEnc   float64 // angle per encoder tick
	MaxAng      float64 // rad
	MinAng      float64 // rad
	Flipped     bool
	MaxSpeed    float64 // rad/s
}

func Defaults() Settings {
	return Settings{
		HomeEncoder: 0x7FF,
		MaxEncoder:  0xFFF,
		RadPerEnc:   2 * math.Pi / 1024,
		MaxAng:      math.Pi,
		MinAng:      -math.Pi,
		Flipped:     false,
		MaxSpeed:    2 * math.Pi,
	}
}

var ErrInvalid = errors.New("settings: invalid")

func (s Settings) Validate() error {
	switch {
	case !finite(s.RadPerEnc, s.MaxAng, s.MinAng, s.MaxSpeed):
		return fmt.Errorf("%w: NaN or infinite value", ErrInvalid)
	case s.RadPerEnc <= 0:
		return fmt.Errorf("%w: rad_per_enc must be positive", ErrInvalid)
	case s.MaxEncoder <= 0:
		return fmt.Errorf("%w: max_encoder must be positive", ErrInvalid)
	case s.HomeEncoder < 0 || s.HomeEncoder > s.MaxEncoder:
		return fmt.Errorf("%w: home_encoder %d outside [0, %d]", ErrInvalid, s.HomeEncoder, s.MaxEncoder)
	case s.MinAng > s.MaxAng:
		return fmt.Errorf("%w: min_ang > max_ang", ErrInvalid)
	case s.MaxSpeed <= 0:
		return fmt.Errorf("%w: max_speed must be positive", ErrInvalid)
	}
	return nil
}

func finite(list ...float64) bool {
	for _, f := range list {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Override holds the fields a configuration source specifies
// for a servo; nil fields keep the default.
type Override struct {
	HomeEncoder *int
	MaxEncoder  *int
	RadPerEnc   *float64
	MaxAng      *float64
	MinAng      *float64
	Flipped     *bool
	MaxSpeed    *float64
}

func (o Override) Apply(s Settings) Settings {
	if o.HomeEncoder != nil {
		s.HomeEncoder = *o.HomeEncoder
	}
	if o.MaxEncoder != nil {
		s.MaxEncoder = *o.MaxEncoder
	}
	if o.RadPerEnc != nil {
		s.RadPerEnc = *o.RadPerEnc
	}
	if o.MaxAng != nil {
		s.MaxAng = *o.MaxAng
	}
	if o.MinAng != nil {
		s.MinAng = *o.MinAng
	}
	if o.Flipped != nil {
		s.Flipped = *o.Flipped
	}
	if o.MaxSpeed != nil {
		s.MaxSpeed = *o.MaxSpeed
	}
	return s
}

// Source supplies per-servo overrides.
type Source interface {
	Lookup(id byte) (Override, bool)
}

// Outcome tells where resolved settings came from.
type Outcome int

const (
	FromSource Outcome = iota
	NoSource           // no source configured, defaults used
	NoEntry            // source has no entry for the id, defaults used
)

func (o Outcome) String() string {
	switch o {
	case FromSource:
		return "from source"
	case NoSource:
		return "no settings source, using defaults"
	case NoEntry:
		return "no settings entry, using defaults"
	}
	return "unknown"
}

// UsesDefaults reports whether no override was applied.
func (o Outcome) UsesDefaults() bool {
	return o != FromSource
}

// Resolve applies the override src holds for id to the defaults.
func Resolve(src Source, id byte) (Settings, Outcome) {
	if src == nil {
		return Defaults(), NoSource
	}
	o, ok := src.Lookup(id)
	if !ok {
		return Defaults(), NoEntry
	}
	return o.Apply(Defaults()), FromSource
}

// Table is a Source backed by a map.
type Table map[byte]Override

func (t Table) Lookup(id byte) (o Override, ok bool) {
	o, ok = t[id]
	return
}

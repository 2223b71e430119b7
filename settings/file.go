package settings

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// entry is the YAML form of an Override. Angles may be given in
// degrees using the *_deg keys; they take precedence.
type entry struct {
	HomeEncoder *int     `yaml:"home_encoder"`
	MaxEncoder  *int     `yaml:"max_encoder"`
	RadPerEnc   *float64 `yaml:"rad_per_enc"`
	MaxAng      *float64 `yaml:"max_ang"`
	MinAng      *float64 `yaml:"min_ang"`
	Flipped     *bool    `yaml:"flipped"`
	MaxSpeed    *float64 `yaml:"max_speed"`

	TicksPerRev *int     `yaml:"ticks_per_rev"`
	MaxAngDeg   *float64 `yaml:"max_ang_deg"`
	MinAngDeg   *float64 `yaml:"min_ang_deg"`
	MaxSpeedDeg *float64 `yaml:"max_speed_deg"`
}

func radians(deg *float64) *float64 {
	r := *deg * math.Pi / 180
	return &r
}

func (e *entry) override() (o Override, err error) {
	o = Override{
		HomeEncoder: e.HomeEncoder,
		MaxEncoder:  e.MaxEncoder,
		RadPerEnc:   e.RadPerEnc,
		MaxAng:      e.MaxAng,
		MinAng:      e.MinAng,
		Flipped:     e.Flipped,
		MaxSpeed:    e.MaxSpeed,
	}
	if e.TicksPerRev != nil {
		if *e.TicksPerRev <= 0 {
			err = fmt.Errorf("%w: ticks_per_rev must be positive", ErrInvalid)
			return
		}
		r := 2 * math.Pi / float64(*e.TicksPerRev)
		o.RadPerEnc = &r
	}
	if e.MaxAngDeg != nil {
		o.MaxAng = radians(e.MaxAngDeg)
	}
	if e.MinAngDeg != nil {
		o.MinAng = radians(e.MinAngDeg)
	}
	if e.MaxSpeedDeg != nil {
		o.MaxSpeed = radians(e.MaxSpeedDeg)
	}
	return
}

type file struct {
	Servos map[int]entry `yaml:"servos"`
}

// Parse reads the servos section of a YAML configuration.
func Parse(data []byte) (Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	t := make(Table, len(f.Servos))
	for id, e := range f.Servos {
		if id < 1 || id > 253 {
			return nil, fmt.Errorf("%w: servo id %d", ErrInvalid, id)
		}
		o, err := e.override()
		if err != nil {
			return nil, fmt.Errorf("servo %d: %w", id, err)
		}
		t[byte(id)] = o
	}
	return t, nil
}

// LoadFile reads the servos section of the YAML file at path.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

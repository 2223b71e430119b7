package settings

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	require.Equal(t, 0x7FF, s.HomeEncoder)
	require.Equal(t, 0xFFF, s.MaxEncoder)
	require.InDelta(t, 2*math.Pi/1024, s.RadPerEnc, 1e-12)
	require.Equal(t, math.Pi, s.MaxAng)
	require.Equal(t, -math.Pi, s.MinAng)
	require.False(t, s.Flipped)
	require.Equal(t, 2*math.Pi, s.MaxSpeed)
	require.NoError(t, s.Validate())
}

func TestResolve(t *testing.T) {
	home := 512
	flipped := true
	src := Table{
		3: {HomeEncoder: &home, Flipped: &flipped},
	}

	s, outcome := Resolve(nil, 3)
	require.Equal(t, NoSource, outcome)
	require.True(t, outcome.UsesDefaults())
	require.Equal(t, Defaults(), s)

	s, outcome = Resolve(src, 4)
	require.Equal(t, NoEntry, outcome)
	require.Equal(t, Defaults(), s)

	s, outcome = Resolve(src, 3)
	require.Equal(t, FromSource, outcome)
	require.False(t, outcome.UsesDefaults())
	want := Defaults()
	want.HomeEncoder = 512
	want.Flipped = true
	require.Equal(t, want, s)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Settings)
	}{
		{"rad per enc", func(s *Settings) { s.RadPerEnc = 0 }},
		{"max encoder", func(s *Settings) { s.MaxEncoder = 0 }},
		{"home above max", func(s *Settings) { s.HomeEncoder = s.MaxEncoder + 1 }},
		{"negative home", func(s *Settings) { s.HomeEncoder = -1 }},
		{"angles swapped", func(s *Settings) { s.MinAng, s.MaxAng = s.MaxAng, s.MinAng }},
		{"max speed", func(s *Settings) { s.MaxSpeed = 0 }},
		{"max angle NaN", func(s *Settings) { s.MaxAng = math.NaN() }},
		{"min angle -Inf", func(s *Settings) { s.MinAng = math.Inf(-1) }},
		{"max speed +Inf", func(s *Settings) { s.MaxSpeed = math.Inf(1) }},
		{"rad per enc NaN", func(s *Settings) { s.RadPerEnc = math.NaN() }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Defaults()
			tc.modify(&s)
			require.ErrorIs(t, s.Validate(), ErrInvalid)
		})
	}
}

const testConfig = `
buses:
  - proto: serial
    device: /dev/ttyUSB0
servos:
  1:
    home_encoder: 2047
    flipped: true
    max_speed_deg: 180
  2:
    ticks_per_rev: 4096
    max_encoder: 4095
    min_ang_deg: -90
    max_ang: 1.5
`

func TestParse(t *testing.T) {
	table, err := Parse([]byte(testConfig))
	require.NoError(t, err)
	require.Len(t, table, 2)

	s, outcome := Resolve(table, 1)
	require.Equal(t, FromSource, outcome)
	require.Equal(t, 2047, s.HomeEncoder)
	require.True(t, s.Flipped)
	require.InDelta(t, math.Pi, s.MaxSpeed, 1e-12)
	require.Equal(t, math.Pi, s.MaxAng)

	s, _ = Resolve(table, 2)
	require.InDelta(t, 2*math.Pi/4096, s.RadPerEnc, 1e-12)
	require.Equal(t, 4095, s.MaxEncoder)
	require.InDelta(t, -math.Pi/2, s.MinAng, 1e-12)
	require.Equal(t, 1.5, s.MaxAng)
	require.Equal(t, 0x7FF, s.HomeEncoder)
	require.NoError(t, s.Validate())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("servos:\n  300: {flipped: true}\n"))
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte("servos:\n  1: {ticks_per_rev: 0}\n"))
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte("servos: [1, 2"))
	require.Error(t, err)

	// .nan parses, but the resolved settings are rejected
	table, err := Parse([]byte("servos:\n  1: {max_ang: .nan, max_speed_deg: .inf}\n"))
	require.NoError(t, err)
	s, _ := Resolve(table, 1)
	require.ErrorIs(t, s.Validate(), ErrInvalid)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	_, ok := table.Lookup(1)
	require.True(t, ok)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

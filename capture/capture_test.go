package capture

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 123456789, time.UTC)
	original := Event{
		Timestamp: ts,
		Session:   "abc12345-def6-7890-abcd-ef1234567890",
		Bus:       "ttyUSB0",
		Direction: DirectionIn,
		Addr:      3,
		Frame:     []byte{0xff, 0xff, 0x03, 0x02, 0x00, 0xfa},
		Error:     "robotis: timeout",
	}

	data, err := EncodeEvent(original)
	require.NoError(t, err)
	decoded, err := DecodeEvent(data)
	require.NoError(t, err)

	require.True(t, decoded.Timestamp.Equal(original.Timestamp))
	decoded.Timestamp = original.Timestamp
	require.Equal(t, original, decoded)
}

func TestReaderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := 0; i < 3; i++ {
		require.NoError(t, enc.Encode(Event{Addr: uint8(i + 1), Direction: Direction(i % 2)}))
	}

	list, err := NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, ev := range list {
		require.Equal(t, uint8(i+1), ev.Addr)
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.cap")

	l, err := NewFileLogger(path)
	require.NoError(t, err)
	l.Log(Event{Addr: 1, Frame: []byte{0xff, 0xff, 0x01, 0x02, 0x01, 0xfb}})
	l.Log(Event{Addr: 1, Direction: DirectionIn})
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	l.Log(Event{Addr: 9})

	r, err := OpenFile(path)
	require.NoError(t, err)
	defer r.Close()
	list, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, DirectionOut, list[0].Direction)
	require.Equal(t, DirectionIn, list[1].Direction)
}

func TestMultiLogger(t *testing.T) {
	var a, b recorder
	MultiLogger{&a, &b, NoopLogger{}}.Log(Event{Addr: 7})
	require.Len(t, a, 1)
	require.Len(t, b, 1)
}

type recorder []Event

func (r *recorder) Log(ev Event) {
	*r = append(*r, ev)
}

func TestDirectionString(t *testing.T) {
	require.Equal(t, "IN", DirectionIn.String())
	require.Equal(t, "OUT", DirectionOut.String())
	require.Equal(t, "UNKNOWN", Direction(9).String())
}

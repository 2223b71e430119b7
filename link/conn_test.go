package link

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knieriem/robotis"
)

type pipeConn struct {
	io.Reader
	out bytes.Buffer
}

func (c *pipeConn) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func newTestConn(t *testing.T) (*Conn, *io.PipeWriter, *pipeConn) {
	pr, pw := io.Pipe()
	pc := &pipeConn{Reader: pr}
	t.Cleanup(func() { pw.Close() })
	return NewConn(pc, "test"), pw, pc
}

func TestReadFull(t *testing.T) {
	c, pw, _ := newTestConn(t)

	go func() {
		pw.Write([]byte{0xff, 0xff})
		pw.Write([]byte{0x01, 0x02, 0x00})
		pw.Write([]byte{0xfc})
	}()

	hdr := make([]byte, 3)
	require.NoError(t, c.ReadFull(hdr, time.Second))
	require.Equal(t, []byte{0xff, 0xff, 0x01}, hdr)

	tail := make([]byte, 3)
	require.NoError(t, c.ReadFull(tail, time.Second))
	require.Equal(t, []byte{0x02, 0x00, 0xfc}, tail)
}

func TestReadFullTimeout(t *testing.T) {
	c, pw, _ := newTestConn(t)

	go pw.Write([]byte{0xff})

	b := make([]byte, 2)
	err := c.ReadFull(b, 50*time.Millisecond)
	require.Equal(t, robotis.ErrTimeout, err)
}

func TestFlush(t *testing.T) {
	c, pw, _ := newTestConn(t)
	var fwd bytes.Buffer
	c.ReadMgr().Forward = &fwd

	pw.Write([]byte{0x55, 0xaa})
	// wait until the stale bytes have been picked up
	b := make([]byte, 1)
	require.NoError(t, c.ReadFull(b, time.Second))
	time.Sleep(10 * time.Millisecond)

	c.Flush()
	require.Equal(t, []byte{0xaa}, fwd.Bytes())

	go pw.Write([]byte{0x01})
	require.NoError(t, c.ReadFull(b, time.Second))
	require.Equal(t, []byte{0x01}, b)
}

func TestWriteAndExit(t *testing.T) {
	c, pw, pc := newTestConn(t)

	n, err := c.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, pc.out.Bytes())
	require.Equal(t, "test", c.Name())

	pw.Close()
	select {
	case code := <-c.ExitC:
		require.Equal(t, 0, code)
	case <-time.After(time.Second):
		t.Fatal("reader did not exit")
	}
	require.Equal(t, io.EOF, c.ReadFull(make([]byte, 1), time.Second))
}

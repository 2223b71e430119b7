// Package link adapts a plain byte stream, like a serial port,
// to the robotis.NetConn interface.
package link

import (
	"io"
	"time"

	"github.com/knieriem/robotis"
)

type Conn struct {
	conn    io.ReadWriter
	name    string
	readMgr *ReadMgr
	ExitC   chan int
}

func NewConn(conn io.ReadWriter, name string) (c *Conn) {
	c = new(Conn)
	c.conn = conn
	c.name = name

	var buf = make([]byte, 4096)
	rf := func() ([]byte, error) {
		n, err := conn.Read(buf)
		return buf[:n], err
	}
	c.ExitC = make(chan int, 1)
	c.readMgr = NewReadMgr(rf, c.ExitC)
	return
}

func (c *Conn) Name() string {
	return c.name
}

func (c *Conn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *Conn) ReadFull(p []byte, tMax time.Duration) error {
	return c.readMgr.ReadFull(p, tMax)
}

func (c *Conn) Flush() {
	c.readMgr.Flush()
}

func (c *Conn) ReadMgr() *ReadMgr {
	return c.readMgr
}

var _ robotis.NetConn = (*Conn)(nil)

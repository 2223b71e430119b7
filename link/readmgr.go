package link

import (
	"io"
	"time"

	"github.com/knieriem/robotis"
)

// ReadMgr turns a blocking read function into reads of
// an exact length with a timeout. A single goroutine keeps
// reading in the background; bytes that arrive between
// transactions are kept until Flush.
//
// ReadMgr is not safe for concurrent use; the Bus using it
// serializes all calls.
type ReadMgr struct {
	pending []byte
	data    chan readResult
	err     error
	Forward io.Writer
}

type ReadFunc func() ([]byte, error)

type readResult struct {
	data []byte
	err  error
}

func NewReadMgr(rf ReadFunc, exitC chan<- int) *ReadMgr {
	m := new(ReadMgr)
	m.pending = make([]byte, 0, 64)
	m.data = make(chan readResult, 16)
	go m.handle(rf, exitC)
	return m
}

func (m *ReadMgr) handle(read ReadFunc, exitC chan<- int) {
	exitCode := 1
	for {
		buf, err := read()
		if len(buf) != 0 {
			m.data <- readResult{data: append([]byte(nil), buf...)}
		}
		if err != nil {
			if err == io.EOF {
				exitCode = 0
			}
			m.data <- readResult{err: err}
			break
		}
	}
	close(m.data)
	exitC <- exitCode
}

func (m *ReadMgr) receive(r readResult, ok bool) {
	switch {
	case !ok:
		if m.err == nil {
			m.err = io.EOF
		}
	case r.err != nil:
		m.err = r.err
	default:
		m.pending = append(m.pending, r.data...)
	}
}

// ReadFull fills p. If tMax > 0 and the bytes do not arrive
// in time, it returns robotis.ErrTimeout.
func (m *ReadMgr) ReadFull(p []byte, tMax time.Duration) error {
	var timeout <-chan time.Time
	if tMax > 0 {
		t := time.NewTimer(tMax)
		defer t.Stop()
		timeout = t.C
	}
	for len(m.pending) < len(p) {
		if m.err != nil {
			return m.err
		}
		select {
		case r, ok := <-m.data:
			m.receive(r, ok)
		case <-timeout:
			return robotis.ErrTimeout
		}
	}
	n := copy(p, m.pending)
	m.pending = append(m.pending[:0], m.pending[n:]...)
	return nil
}

// Flush discards all bytes received so far. If Forward is set,
// they are written to it instead.
func (m *ReadMgr) Flush() {
loop:
	for m.err == nil {
		select {
		case r, ok := <-m.data:
			m.receive(r, ok)
		default:
			break loop
		}
	}
	if len(m.pending) != 0 && m.Forward != nil {
		m.Forward.Write(m.pending)
	}
	m.pending = m.pending[:0]
}

package capture

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a file.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f, encoder: NewEncoder(f)}, nil
}

func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	// a failing capture must not disturb the bus
	_ = l.encoder.Encode(event)
}

// Close closes the file. Later calls to Log are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)

// Reader reads events from a capture stream.
type Reader struct {
	dec *cbor.Decoder
	c   io.Closer
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: NewDecoder(r)}
}

func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f)
	r.c = f
	return r, nil
}

// Next returns the next event, or io.EOF at the end of the stream.
func (r *Reader) Next() (ev Event, err error) {
	err = r.dec.Decode(&ev)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return
}

// ReadAll returns all remaining events.
func (r *Reader) ReadAll() (list []Event, err error) {
	for {
		ev, err1 := r.Next()
		if err1 == io.EOF {
			return
		}
		if err1 != nil {
			err = err1
			return
		}
		list = append(list, ev)
	}
}

func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

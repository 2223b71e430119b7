package robotis

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knieriem/robotis/capture"
	"github.com/knieriem/robotis/debug"
)

// NetConn is the byte channel a Bus performs its transactions on.
type NetConn interface {
	Name() string
	Write(p []byte) (int, error)

	// ReadFull reads exactly len(p) bytes. It returns
	// ErrTimeout if they do not arrive within timeout.
	// A timeout <= 0 waits indefinitely.
	ReadFull(p []byte, timeout time.Duration) error

	// Flush discards any input received so far.
	Flush()
}

// Bus serializes request/reply transactions of all devices
// sharing one half-duplex line.
type Bus struct {
	conn    NetConn
	mu      sync.Mutex
	session string

	Tracef          func(format string, a ...interface{})
	Capture         capture.Logger
	ResponseTimeout time.Duration
	TurnaroundDelay time.Duration

	// If VerifyChecksum is set, replies with a checksum
	// not matching their contents fail with ErrChecksum.
	// Off by default: some devices in the field send
	// replies with bad checksums.
	VerifyChecksum bool

	RequestStats RequestStats
}

func NewBus(conn NetConn) (b *Bus) {
	b = new(Bus)
	b.conn = conn
	b.session = uuid.New().String()
	b.ResponseTimeout = 100 * time.Millisecond
	b.TurnaroundDelay = 4 * time.Millisecond
	return
}

func (b *Bus) Name() string {
	return b.conn.Name()
}

// Session returns the id identifying this Bus in captures.
func (b *Bus) Session() string {
	return b.session
}

type ReqOption func(*reqOptions)

type reqOptions struct {
	timeout           time.Duration
	nRetriesOnTimeout int
}

func WithTimeout(d time.Duration) ReqOption {
	return func(r *reqOptions) {
		r.timeout = d
	}
}

// RetryOnTimeout repeats a request up to n times if no reply
// arrives. Other errors are never retried.
func RetryOnTimeout(n int) ReqOption {
	return func(r *reqOptions) {
		r.nRetriesOnTimeout = n
	}
}

// Request performs one round trip: it sends an instruction
// packet to addr and returns the data part of the reply.
// Requests to BroadcastAddr return after the turnaround delay
// without reading a reply.
func (b *Bus) Request(addr byte, op Opcode, reg byte, params []byte, opts ...ReqOption) ([]byte, error) {
	body := make([]byte, 0, 2+len(params))
	body = append(body, byte(op), reg)
	body = append(body, params...)
	return b.request(addr, body, opts)
}

// Ping checks whether a device answers at addr.
func (b *Bus) Ping(addr byte, opts ...ReqOption) error {
	_, err := b.request(addr, []byte{byte(OpPing)}, opts)
	return err
}

func (b *Bus) request(addr byte, body []byte, opts []ReqOption) (data []byte, err error) {
	var rqo reqOptions
	rqo.timeout = b.ResponseTimeout
	for _, o := range opts {
		o(&rqo)
	}
	defer func() {
		b.RequestStats.Update(err)
	}()
	if len(body)+1 > MaxInstructionLen {
		return nil, ErrMaxReqLenExceeded
	}

	nRetries := 0
retry:
	data, err = b.transact(addr, body, rqo.timeout)
	if err == ErrTimeout && nRetries < rqo.nRetriesOnTimeout {
		nRetries++
		goto retry
	}
	return
}

func (b *Bus) transact(addr byte, body []byte, tMax time.Duration) (data []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn.Flush()
	msg := encode(addr, body)
	b.logFrame("<-", capture.DirectionOut, addr, msg, nil)
	_, err = b.conn.Write(msg)
	if err != nil {
		return
	}
	if addr == BroadcastAddr {
		time.Sleep(b.TurnaroundDelay)
		return
	}

	frame, err := b.receive(addr, tMax)
	b.logFrame("->", capture.DirectionIn, addr, frame, err)
	if err != nil {
		return
	}
	r, err := DecodeReply(addr, frame)
	if err != nil {
		return
	}
	if b.VerifyChecksum && !r.Valid() {
		err = ErrChecksum
		return
	}
	if r.Err != 0 {
		err = DeviceError(r.Err)
		return
	}
	data = r.Data
	return
}

// receive reads a status packet field by field, failing
// as soon as the header or the echoed id do not match.
func (b *Bus) receive(addr byte, tMax time.Duration) (frame []byte, err error) {
	frame = make([]byte, HeaderLen, HeaderLen+8)
	err = b.conn.ReadFull(frame[:2], tMax)
	if err != nil {
		return frame[:0], err
	}
	err = checkHeader(frame[:2])
	if err != nil {
		return frame[:2], err
	}
	err = b.conn.ReadFull(frame[2:3], tMax)
	if err != nil {
		return frame[:2], err
	}
	err = checkID(addr, frame[2])
	if err != nil {
		return frame[:3], err
	}
	err = b.conn.ReadFull(frame[3:4], tMax)
	if err != nil {
		return frame[:3], err
	}
	n := frame[3]
	err = checkLengthField(n)
	if err != nil {
		return
	}

	// error byte, data, checksum
	tail := make([]byte, n)
	err = b.conn.ReadFull(tail, tMax)
	if err != nil {
		return
	}
	frame = append(frame, tail...)
	return
}

func (b *Bus) logFrame(dir string, cdir capture.Direction, addr byte, frame []byte, err error) {
	if b.Tracef != nil {
		b.Tracef("%s\n", debug.FormatMsg(dir, frame, err, b.conn.Name()))
	}
	if b.Capture == nil {
		return
	}
	ev := capture.Event{
		Timestamp: time.Now(),
		Session:   b.session,
		Bus:       b.conn.Name(),
		Direction: cdir,
		Addr:      addr,
		Frame:     append([]byte(nil), frame...),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	b.Capture.Log(ev)
}

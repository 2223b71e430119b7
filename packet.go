package robotis

import (
	"bytes"
	"strconv"

	"github.com/knieriem/robotis/hash/sum8"
)

const (
	// BroadcastAddr addresses all devices; they do not reply.
	BroadcastAddr = 0

	MinAddr = 1
	MaxAddr = 253

	// HeaderLen is the length of the frame header, the id
	// and the length field.
	HeaderLen = 4

	// MaxInstructionLen limits the length field of a request.
	MaxInstructionLen = 0xFF
)

var Header = [2]byte{0xFF, 0xFF}

type Opcode uint8

const (
	OpPing  Opcode = 0x01
	OpRead  Opcode = 0x02
	OpWrite Opcode = 0x03
)

func (op Opcode) String() string {
	switch op {
	case OpPing:
		return "PING"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	}
	return "OP(0x" + strconv.FormatUint(uint64(op), 16) + ")"
}

// EncodeInstruction builds an instruction packet
//
//	0xFF 0xFF id length op reg params... checksum
//
// where length counts op, reg, params and the checksum.
func EncodeInstruction(id byte, op Opcode, reg byte, params []byte) []byte {
	body := make([]byte, 0, 2+len(params))
	body = append(body, byte(op), reg)
	body = append(body, params...)
	return encode(id, body)
}

// EncodeStatus builds the status packet a device sends in reply.
func EncodeStatus(id byte, errb byte, data []byte) []byte {
	body := make([]byte, 0, 1+len(data))
	body = append(body, errb)
	body = append(body, data...)
	return encode(id, body)
}

func encode(id byte, body []byte) []byte {
	h := sum8.New()
	b := make([]byte, 0, HeaderLen+len(body)+1)
	b = append(b, Header[:]...)
	b = append(b, id, byte(len(body)+1))
	b = append(b, body...)
	h.Write(b[2:])
	return h.Sum(b)
}

// Checksum computes the checksum of a frame, which must
// at least contain the header, id and length fields.
// A trailing checksum byte present in frame is not included.
func Checksum(frame []byte) byte {
	n := HeaderLen + int(frame[3]) - 1
	if n > len(frame) {
		n = len(frame)
	}
	return sum8.Checksum(frame[2:n])
}

// Reply is a decoded status packet.
type Reply struct {
	ID       byte
	Err      byte
	Data     []byte
	Checksum byte
	frame    []byte
}

// Valid reports whether the checksum transmitted with the reply
// matches the checksum computed over its contents.
func (r *Reply) Valid() bool {
	return r.Checksum == Checksum(r.frame)
}

func checkHeader(b []byte) error {
	if !bytes.Equal(b, Header[:]) {
		return ErrHeader
	}
	return nil
}

func checkID(want, have byte) error {
	if want != have {
		return &MismatchError{Want: want, Have: have}
	}
	return nil
}

func checkLengthField(n byte) error {
	if n < 2 {
		return NewInvalidLen(MsgContextLength, int(n), 2)
	}
	return nil
}

// DecodeReply decodes a complete status packet
//
//	0xFF 0xFF id length err data... checksum
//
// sent in response to a request addressed to id. The checksum is
// not validated here; see Reply.Valid.
func DecodeReply(id byte, frame []byte) (r Reply, err error) {
	if len(frame) < HeaderLen+2 {
		err = NewInvalidLen(MsgContextFrame, len(frame), HeaderLen+2)
		return
	}
	err = checkHeader(frame[:2])
	if err != nil {
		return
	}
	err = checkID(id, frame[2])
	if err != nil {
		return
	}
	err = checkLengthField(frame[3])
	if err != nil {
		return
	}
	n := HeaderLen + int(frame[3])
	if len(frame) != n {
		err = NewInvalidLen(MsgContextFrame, len(frame), n)
		return
	}
	r.ID = frame[2]
	r.Err = frame[4]
	r.Data = frame[5 : n-1]
	r.Checksum = frame[n-1]
	r.frame = frame
	return
}

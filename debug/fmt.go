package debug

import (
	"fmt"
)

const hdrLen = 4

// FormatMsg formats a frame for tracing. Complete frames are
// split into header, body and checksum:
//
//	<- ttyUSB0 [6] (ff ff 01 02) 01 (fb)
func FormatMsg(msgDir string, frame []byte, err error, ncName string) string {
	s := ""
	if msgDir != "" {
		s += msgDir + " "
	}
	s += ncName
	n := len(frame)
	if !complete(frame) {
		if n == 0 {
			s += " [0]"
		} else {
			s += fmt.Sprintf(" [%d] % x", n, frame)
		}
	} else {
		s += fmt.Sprintf(" [%d] (% x) % x (%02x)", n, frame[:hdrLen], frame[hdrLen:n-1], frame[n-1])
	}
	if err != nil {
		s += " error: " + err.Error()
	}
	return s
}

func complete(frame []byte) bool {
	if len(frame) < hdrLen+1 {
		return false
	}
	return len(frame) == hdrLen+int(frame[3])
}

package capture

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor decoder mode: %v", err))
	}
}

func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

func DecodeEvent(data []byte) (ev Event, err error) {
	err = decMode.Unmarshal(data, &ev)
	return
}

func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

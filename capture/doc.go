// Package capture records every frame exchanged on a bus as a
// machine-readable event stream.
//
// Events are CBOR encoded with integer keys. A FileLogger appends
// them to a file; a Reader iterates over such a file:
//
//	l, err := capture.NewFileLogger("/var/log/servo/arm.cap")
//	...
//	bus.Capture = l
//
// Capture is separate from the one-line traces written through
// Bus.Tracef, which are meant for humans.
package capture

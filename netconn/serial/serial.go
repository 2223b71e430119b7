// Package serial registers the "serial" protocol, a bus attached
// to a local serial port or to the standard I/O of a command.
package serial

import (
	"io"

	"github.com/knieriem/robotis/link"
	"github.com/knieriem/robotis/netconn"
)

func init() {
	netconn.RegisterProtocol(&netconn.Proto{
		Name:           "serial",
		OptionalFields: netconn.DevFields,
		Dial:           dial,
		InterfaceGroup: &serialPorts,
	})
	netconn.SetDefaultProto("serial")
}

// Forward, if set, receives bytes arriving outside of a
// transaction on connections dialed afterwards.
var Forward io.Writer

func dial(cf *netconn.Conf) (conn *netconn.Conn, err error) {
	var f io.ReadWriteCloser
	var name, info string

	supportsOptions := true
	if cmd, match := parseCommand(cf.Device); match {
		f, err = cmd.Dial()
		name = cf.Device
		supportsOptions = false
	} else {
		f, name, err = openPort(cf)
		info = portInfo(name)
	}
	if err != nil {
		return
	}

	lc := link.NewConn(f, name)
	lc.ReadMgr().Forward = Forward
	conn = &netconn.Conn{
		Addr:       cf.MakeAddr(name, supportsOptions),
		Device:     name,
		DeviceInfo: info,
		NetConn:    lc,
		Closer:     f,
		ExitC:      lc.ExitC,
	}
	return
}

// Package tcp registers the "tcp" protocol: a bus reached through
// a serial-to-network bridge like ser2net, which passes the bytes
// of the line through unmodified.
package tcp

import (
	"net"

	"github.com/knieriem/robotis/link"
	"github.com/knieriem/robotis/netconn"
)

const (
	DefaultPort = "4001"
)

func init() {
	netconn.RegisterProtocol(&netconn.Proto{
		Name:           "tcp",
		OptionalFields: netconn.FieldAddr,
		Dial:           dial,
		InterfaceGroup: &netconn.InterfaceGroup{
			Name:       "TCP bridges",
			Type:       "ip",
			Interfaces: func() []netconn.Interface { return nil },
			SortPrefix: "B01",
		},
	})
}

func dial(cf *netconn.Conf) (conn *netconn.Conn, err error) {
	addr, err := cf.Addr.Complete(DefaultPort)
	if err != nil {
		return
	}
	tc, err := net.Dial("tcp", addr)
	if err != nil {
		return
	}
	nc := link.NewConn(tc, addr)
	conn = &netconn.Conn{
		Addr:    cf.MakeAddr(addr, false),
		Device:  addr,
		NetConn: nc,
		Closer:  tc,
		ExitC:   nc.ExitC,
	}
	return
}

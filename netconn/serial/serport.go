package serial

import (
	"io"
	"strings"

	"github.com/knieriem/serport"
	"github.com/knieriem/serport/serenum"

	"github.com/knieriem/robotis/netconn"
)

// DefaultCtl is applied before the options of a bus entry;
// these servos usually talk at 1 Mbit/s.
var DefaultCtl = "b1000000"

func portInfo(name string) string {
	return serenum.Lookup(name).Format(nil)
}

func openPort(cf *netconn.Conf) (c io.ReadWriteCloser, portName string, err error) {
	inictl := strings.Join(append([]string{DefaultCtl}, cf.Options...), " ")

	portName, err = serport.Choose(cf.Device)
	if err != nil {
		return nil, "", err
	}
	port, err := serport.Open(portName, serport.MergeCtlCmds(serport.StdConf, inictl))
	if err != nil {
		return nil, portName, err
	}
	return port, portName, nil
}

var serialPorts = netconn.InterfaceGroup{
	Name:       "Serial ports",
	Interfaces: serialInterfaces,
	SortPrefix: "A01",
	Type:       "serport",
}

func serialInterfaces() (list []netconn.Interface) {
	for _, info := range serenum.Ports() {
		list = append(list, netconn.Interface{
			Name: info.Device,
			Desc: info.Format(nil),
			Info: info,
		})
	}
	return
}

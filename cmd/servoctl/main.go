// Servoctl is an interactive shell for servos attached to a bus.
//
//	servoctl [-c robotis.yaml] [-bus spec] [-capture file] [-trace] [command args...]
//
// Given a command, servoctl executes it and exits.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/knieriem/robotis"
	"github.com/knieriem/robotis/bussim"
	"github.com/knieriem/robotis/capture"
	"github.com/knieriem/robotis/netconn"
	_ "github.com/knieriem/robotis/netconn/serial"
	_ "github.com/knieriem/robotis/netconn/tcp"
	"github.com/knieriem/robotis/settings"
)

var (
	confFile    = flag.String("c", "", "configuration `file` listing buses and servo settings")
	busSpec     = flag.String("bus", "", "bus `spec`, like arm, serial:/dev/ttyUSB1,b57600 or tcp:host:4001")
	captureFile = flag.String("capture", "", "append all frames to `file` in CBOR format")
	trace       = flag.Bool("trace", false, "print frames to stderr")
	simulate    = flag.Int("sim", 0, "simulate `n` servos with ids 1..n instead of dialing a bus")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	sh, closer, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "servoctl:", err)
		os.Exit(1)
	}
	defer closer.Close()

	if args := flag.Args(); len(args) > 0 {
		err = sh.Process(args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "servoctl:", err)
			os.Exit(1)
		}
		return
	}
	sh.Run()
}

type closers []io.Closer

func (list closers) Close() error {
	for i := len(list) - 1; i >= 0; i-- {
		list[i].Close()
	}
	return nil
}

func setup() (sh *Shell, c closers, err error) {
	var src settings.Source
	buses := netconn.ConfList{{Proto: "serial", Default: true}}
	if *confFile != "" {
		src, err = settings.LoadFile(*confFile)
		if err != nil {
			return
		}
		buses, err = netconn.LoadFile(*confFile)
		if err != nil {
			return
		}
	}

	var bus *robotis.Bus
	if *simulate > 0 {
		sim := bussim.New()
		for id := 1; id <= *simulate && id <= robotis.MaxAddr; id++ {
			sim.Add(byte(id))
		}
		bus = robotis.NewBus(sim)
	} else {
		conn, err1 := buses.Dial(*busSpec)
		if err1 != nil {
			err = err1
			return
		}
		c = append(c, conn)
		bus = robotis.NewBus(conn)
		glog.Infof("connected to %s %s", conn.Addr, conn.DeviceInfo)
	}

	if *trace {
		bus.Tracef = func(format string, a ...interface{}) {
			fmt.Fprintf(os.Stderr, format, a...)
		}
	}
	if *captureFile != "" {
		fl, err1 := capture.NewFileLogger(*captureFile)
		if err1 != nil {
			c.Close()
			return nil, nil, err1
		}
		c = append(c, fl)
		bus.Capture = fl
	}

	sh = NewShell(bus, src)
	sh.buses = buses
	return sh, c, nil
}

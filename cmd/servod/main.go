// Servod attaches the servos listed in a configuration file
// and exposes them to an MQTT broker until it is interrupted.
//
//	servod -c robotis.yaml -broker mqtt://host:1883/robot
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/golang/glog"

	"github.com/knieriem/robotis"
	"github.com/knieriem/robotis/bridge/mqtt"
	"github.com/knieriem/robotis/capture"
	"github.com/knieriem/robotis/netconn"
	_ "github.com/knieriem/robotis/netconn/serial"
	_ "github.com/knieriem/robotis/netconn/tcp"
	"github.com/knieriem/robotis/servo"
	"github.com/knieriem/robotis/settings"
)

var (
	confFile    = flag.String("c", "robotis.yaml", "configuration `file`")
	busSpec     = flag.String("bus", "", "bus `spec`, overriding the configured default")
	brokerURL   = flag.String("broker", "mqtt://localhost:1883", "broker `url`")
	interval    = flag.Duration("interval", mqtt.DefaultInterval, "state publishing interval")
	captureFile = flag.String("capture", "", "append all frames to `file` in CBOR format")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		glog.Error(err)
		fmt.Fprintln(os.Stderr, "servod:", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	table, err := settings.LoadFile(*confFile)
	if err != nil {
		return err
	}
	buses, err := netconn.LoadFile(*confFile)
	if err != nil {
		return err
	}
	conn, err := buses.Dial(*busSpec)
	if err != nil {
		return err
	}
	defer conn.Close()
	glog.Infof("connected to %s", conn.Addr)

	bus := robotis.NewBus(conn)
	if *captureFile != "" {
		fl, err := capture.NewFileLogger(*captureFile)
		if err != nil {
			return err
		}
		defer fl.Close()
		bus.Capture = fl
	}

	servos := attach(bus, table)
	if len(servos) == 0 {
		return errors.New("no servos responding")
	}

	b := mqtt.New("", servos...)
	b.Interval = *interval
	client, err := mqtt.Connect(ctx, *brokerURL, b)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case code := <-conn.ExitC:
			glog.Errorf("bus connection terminated (%d)", code)
			cancel()
		case <-ctx.Done():
		}
	}()

	err = b.Run(ctx)
	for _, s := range servos {
		if err := s.DisableTorque(); err != nil {
			glog.Warningf("servo %d: disable torque: %v", s.ID(), err)
		}
	}
	return err
}

// attach creates a Servo for each configured id. Servos not
// responding are logged and skipped.
func attach(bus *robotis.Bus, table settings.Table) []*servo.Servo {
	ids := make([]int, 0, len(table))
	for id := range table {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var list []*servo.Servo
	for _, id := range ids {
		s, err := servo.New(bus, byte(id), table)
		if err != nil {
			glog.Warningf("%v", err)
			continue
		}
		glog.V(1).Infof("servo %d attached, return delay %v", id, s.ReturnDelay())
		list = append(list, s)
	}
	return list
}


package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/knieriem/robotis"
	"github.com/knieriem/robotis/capture"
	"github.com/knieriem/robotis/debug"
	"github.com/knieriem/robotis/netconn"
	"github.com/knieriem/robotis/register"
	"github.com/knieriem/robotis/servo"
	"github.com/knieriem/robotis/settings"
)

const (
	detachedPrompt = "[none] > "
	moveTimeout    = 10 * time.Second
)

var errNotAttached = errors.New("no servo attached, see attach")

// Shell holds the state of a servoctl session.
type Shell struct {
	*ishell.Shell
	bus      *robotis.Bus
	buses    netconn.ConfList
	settings settings.Source
	servo    *servo.Servo
}

type cmdFunc func(w io.Writer, args []string) error

func NewShell(bus *robotis.Bus, src settings.Source) *Shell {
	s := &Shell{Shell: ishell.New(), bus: bus, settings: src}
	s.SetPrompt(detachedPrompt)
	for _, cmd := range s.commands() {
		s.AddCmd(cmd)
	}
	return s
}

func (s *Shell) commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{Name: "ifaces", Help: "[-a] list interfaces", Func: s.wrap(s.ifaces)},
		{Name: "buses", Help: "list configured buses", Func: s.wrap(s.listBuses)},
		{Name: "scan", Help: "[MIN MAX] list responding devices", Func: s.wrap(s.scan)},
		{Name: "ping", Help: "ID", Func: s.wrap(s.ping)},
		{Name: "attach", Aliases: []string{"a"}, Help: "ID select a servo", Func: s.wrap(s.attach)},
		{Name: "angle", Help: "print the present angle", Func: s.wrap(s.attached(s.angle))},
		{Name: "move", Aliases: []string{"m"}, Help: "DEG [SPEED(deg/s)] [-n]", Func: s.wrap(s.attached(s.move))},
		{Name: "vel", Help: "SPEED(deg/s) set the goal velocity", Func: s.wrap(s.attached(s.vel))},
		{Name: "torque", Help: "on|off", Func: s.wrap(s.attached(s.torque))},
		{Name: "status", Aliases: []string{"st"}, Help: "print sensor values", Func: s.wrap(s.attached(s.status))},
		{Name: "reg", Help: "[NAME [VALUE]] read or write a register", Func: s.wrap(s.reg)},
		{Name: "gain", Help: "[P I D]", Func: s.wrap(s.attached(s.gain))},
		{Name: "stats", Help: "print request statistics", Func: s.wrap(s.stats)},
		{Name: "dump", Help: "FILE print a capture file", Func: s.wrap(s.dump)},
	}
}

func (s *Shell) wrap(f cmdFunc) func(*ishell.Context) {
	return func(c *ishell.Context) {
		var buf bytes.Buffer
		err := f(&buf, c.Args)
		c.Print(buf.String())
		if err != nil {
			c.Err(err)
		}
	}
}

func (s *Shell) attached(f cmdFunc) cmdFunc {
	return func(w io.Writer, args []string) error {
		if s.servo == nil {
			return errNotAttached
		}
		return f(w, args)
	}
}

func parseID(arg string) (byte, error) {
	u, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid ID: %v", err)
	}
	return byte(u), nil
}

func parseFloats(args []string) ([]float64, error) {
	list := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		list[i] = f
	}
	return list, nil
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
func rad(deg float64) float64 { return deg * math.Pi / 180 }

func (s *Shell) ifaces(w io.Writer, args []string) error {
	return netconn.FprintInterfaces(w, len(args) > 0 && args[0] == "-a")
}

// listBuses prints the configured buses; the default one is
// marked with an asterisk, interfaces filled in automatically
// are printed in parentheses.
func (s *Shell) listBuses(w io.Writer, args []string) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	def := s.buses.Default()
	for i, name := range s.buses.Names() {
		c := s.buses[i]
		mark := " "
		if i == def {
			mark = "*"
		}
		iface := c.InterfaceName()
		if iface == "" {
			if iface = c.DefaultInterfaceName(); iface != "" {
				iface = "(" + iface + ")"
			}
		}
		opts := ""
		if c.SupportsOptions() {
			opts = strings.Join(c.Options, ",")
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\n", mark, name, c.Proto, c.InterfaceType(), iface, opts)
	}
	return tw.Flush()
}

func (s *Shell) scan(w io.Writer, args []string) error {
	lo, hi := byte(robotis.MinAddr), byte(robotis.MaxAddr)
	if len(args) == 2 {
		var err error
		if lo, err = parseID(args[0]); err != nil {
			return err
		}
		if hi, err = parseID(args[1]); err != nil {
			return err
		}
	}
	n := 0
	test := robotis.PingTest(s.bus, func(addr byte) {
		fmt.Fprintln(w, addr)
		n++
	})
	err := robotis.ScanDevices(s.bus, lo, hi, test)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(w, "no devices found")
	}
	return nil
}

func (s *Shell) ping(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("ID required")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	err = s.bus.Ping(id)
	if code, ok := robotis.IsDeviceError(err); ok {
		fmt.Fprintf(w, "%d: alive, error 0x%02x\n", id, code)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d: alive\n", id)
	return nil
}

func (s *Shell) attach(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("ID required")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	sv, err := servo.New(s.bus, id, s.settings)
	if err != nil {
		return err
	}
	s.servo = sv
	if s.Shell != nil {
		s.SetPrompt(fmt.Sprintf("servo %d > ", id))
	}
	fmt.Fprintf(w, "servo %d, return delay %v\n", id, sv.ReturnDelay())
	return nil
}

func (s *Shell) angle(w io.Writer, args []string) error {
	a, err := s.servo.ReadAngle()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%.2f° (%.4f rad)\n", deg(a), a)
	return nil
}

func (s *Shell) move(w io.Writer, args []string) error {
	var opts []servo.MoveOption
	var nums []string
	for _, a := range args {
		if a == "-n" {
			opts = append(opts, servo.NonBlocking())
			continue
		}
		nums = append(nums, a)
	}
	if len(nums) < 1 || len(nums) > 2 {
		return errors.New("DEG [SPEED] expected")
	}
	v, err := parseFloats(nums)
	if err != nil {
		return err
	}
	angle := rad(v[0])
	angvel := s.servo.Settings().MaxSpeed
	if len(v) == 2 {
		angvel = rad(v[1])
		opts = append(opts, servo.AngVel(angvel))
	}
	err = s.servo.CheckMove(angle, angvel)
	if err != nil {
		return err
	}
	opts = append(opts, servo.Timeout(moveTimeout))
	return s.servo.MoveAngle(context.Background(), angle, opts...)
}

func (s *Shell) vel(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("SPEED required")
	}
	v, err := parseFloats(args)
	if err != nil {
		return err
	}
	return s.servo.SetAngVel(rad(v[0]))
}

func (s *Shell) torque(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("on|off expected")
	}
	switch args[0] {
	case "on":
		return s.servo.EnableTorque()
	case "off":
		return s.servo.DisableTorque()
	}
	return fmt.Errorf("invalid argument: %s", args[0])
}

func (s *Shell) status(w io.Writer, args []string) error {
	sv := s.servo
	a, err := sv.ReadAngle()
	if err != nil {
		return err
	}
	moving, err := sv.IsMoving()
	if err != nil {
		return err
	}
	volt, err := sv.ReadVoltage()
	if err != nil {
		return err
	}
	temp, err := sv.ReadTemperature()
	if err != nil {
		return err
	}
	load, err := sv.ReadLoad()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "angle:\t%.2f°\n", deg(a))
	fmt.Fprintf(tw, "moving:\t%v\n", moving)
	fmt.Fprintf(tw, "voltage:\t%.1f V\n", volt)
	fmt.Fprintf(tw, "temperature:\t%d °C\n", temp)
	fmt.Fprintf(tw, "load:\t%d\n", load)
	return tw.Flush()
}

func (s *Shell) reg(w io.Writer, args []string) error {
	if len(args) == 0 {
		tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
		for _, r := range register.All() {
			fmt.Fprintf(tw, "0x%02x\t%s\t%d\t%v\n", r.Addr, r.Name, r.Width, r.Access)
		}
		return tw.Flush()
	}
	if s.servo == nil {
		return errNotAttached
	}
	r, ok := register.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown register: %s", args[0])
	}
	d := s.bus.Device(s.servo.ID())
	if len(args) == 1 {
		v, err := register.Read(d, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", r.Name, register.Format(r, v))
		return nil
	}
	v, err := register.Parse(r, args[1])
	if err != nil {
		return err
	}
	return register.Write(d, r, v)
}

func (s *Shell) gain(w io.Writer, args []string) error {
	sv := s.servo
	switch len(args) {
	case 0:
	case 3:
		g := make([]int, 3)
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return err
			}
			g[i] = v
		}
		if err := sv.WritePGain(g[0]); err != nil {
			return err
		}
		if err := sv.WriteIGain(g[1]); err != nil {
			return err
		}
		if err := sv.WriteDGain(g[2]); err != nil {
			return err
		}
	default:
		return errors.New("P I D expected")
	}
	p, err := sv.ReadPGain()
	if err != nil {
		return err
	}
	i, err := sv.ReadIGain()
	if err != nil {
		return err
	}
	d, err := sv.ReadDGain()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "P %d  I %d  D %d\n", p, i, d)
	return nil
}

func (s *Shell) stats(w io.Writer, args []string) error {
	n := s.bus.RequestStats.Snapshot()
	fmt.Fprintf(w, "requests: %d\n", n.All)
	for _, e := range []struct {
		name string
		num  int
	}{
		{"timeout", n.Timeout},
		{"invalid", n.Invalid},
		{"device error", n.DeviceError},
		{"other", n.Other},
	} {
		fmt.Fprintf(w, "%s: %d (%.1f%%)\n", e.name, e.num, n.Percentage(e.num))
	}
	return nil
}

func (s *Shell) dump(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("FILE required")
	}
	r, err := capture.OpenFile(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		dir := "<-"
		if ev.Direction == capture.DirectionIn {
			dir = "->"
		}
		var evErr error
		if ev.Error != "" {
			evErr = errors.New(ev.Error)
		}
		fmt.Fprintf(w, "%s %s\n", ev.Timestamp.Format("15:04:05.000"), strings.TrimSpace(debug.FormatMsg(dir, ev.Frame, evErr, ev.Bus)))
	}
}

// Package netconn describes the buses a program may connect to,
// and dials them by name. Protocols register themselves from
// their own packages, see netconn/serial and netconn/tcp.
package netconn

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/knieriem/robotis"
)

var protos = make(map[string]*Proto, 4)
var defaultProto *Proto

func SetDefaultProto(name string) {
	defaultProto = protos[name]
}

func RegisterProtocol(proto *Proto) {
	protos[proto.Name] = proto
}

func (c *Conf) proto() (p *Proto, err error) {
	p, ok := protos[c.Proto]
	if !ok {
		err = errors.New("invalid proto: " + c.Proto)
	}
	return
}

const (
	FieldAddr = 1 << iota
	FieldDev
	FieldOpt
	endField  = 1 << iota
	FieldMask = endField - 1
	DevFields = FieldDev | FieldOpt
)

var fieldNameMap = map[int]string{
	FieldAddr: "addr",
	FieldDev:  "device",
	FieldOpt:  "options",
}

type Proto struct {
	Name           string
	Dial           func(*Conf) (*Conn, error)
	RequiredFields int
	OptionalFields int
	InterfaceGroup *InterfaceGroup
}

func (p *Proto) UnexpectedFields() int {
	return ^(p.RequiredFields | p.OptionalFields) & FieldMask
}

func (p *Proto) fieldFlags() int {
	return p.RequiredFields | p.OptionalFields
}

// Conn is a dialed bus connection.
type Conn struct {
	robotis.NetConn
	io.Closer
	Addr       string
	Device     string
	DeviceInfo string

	// ExitC receives a value once the connection's reader
	// terminates: 0 on end of file, 1 on other errors.
	ExitC <-chan int
}

// Conf is an entry of the buses list of a configuration file:
//
//	buses:
//	  - name: arm*
//	    proto: serial
//	    device: /dev/ttyUSB0
//	    options: [b1000000]
//	  - proto: tcp
//	    addr: 192.168.1.20
//
// A name ending with an asterisk marks the default bus.
type Conf struct {
	Proto   string   `yaml:"proto"`
	Name    string   `yaml:"name"`
	Addr    IPAddr   `yaml:"addr"`
	Device  string   `yaml:"device"`
	Options []string `yaml:"options"`

	Default bool `yaml:"default"`

	SrcLineNum int `yaml:"-"`
	seen       map[string]bool
}

func (c *Conf) UnmarshalYAML(node *yaml.Node) error {
	type plain Conf
	err := node.Decode((*plain)(c))
	if err != nil {
		return err
	}
	c.SrcLineNum = node.Line
	c.seen = make(map[string]bool, len(node.Content)/2)
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			c.seen[node.Content[i].Value] = true
		}
	}
	return nil
}

// Seen reports whether field was present in the configuration
// the Conf was read from.
func (c *Conf) Seen(field string) bool {
	return c.seen[field]
}

func (c *Conf) Dial() (conn *Conn, err error) {
	p, err := c.proto()
	if err != nil {
		return
	}
	return p.Dial(c)
}

func (c *Conf) MakeAddr(name string, addOptions bool) (addr string) {
	addr = c.Name
	if addr == "" {
		addr = c.Proto
	}
	addr += ":" + name
	if addOptions && len(c.Options) != 0 {
		addr += "," + strings.Join(c.Options, ",")
	}
	return
}

func (c *Conf) SupportsOptions() bool {
	p, ok := protos[c.Proto]
	return ok && (p.fieldFlags()&FieldOpt != 0)
}

func (c *Conf) InterfaceName() string {
	p, ok := protos[c.Proto]
	if !ok {
		return ""
	}
	flags := p.fieldFlags()
	if flags&FieldDev != 0 {
		return c.Device
	}
	if flags&FieldAddr != 0 {
		return string(c.Addr)
	}
	return ""
}

func (c *Conf) SetInterfaceName(name string) {
	p, ok := protos[c.Proto]
	if !ok {
		return
	}
	flags := p.fieldFlags()
	if flags&FieldDev != 0 {
		c.Device = name
	}
	if flags&FieldAddr != 0 {
		c.Addr = IPAddr(name)
	}
}

func (c *Conf) DefaultInterfaceName() string {
	p, ok := protos[c.Proto]
	if !ok || p.InterfaceGroup == nil {
		return ""
	}
	list := p.InterfaceGroup.Interfaces()
	if len(list) == 0 {
		return ""
	}
	return list[0].Name
}

func (c *Conf) InterfaceType() string {
	p, ok := protos[c.Proto]
	if !ok || p.InterfaceGroup == nil {
		return ""
	}
	return p.InterfaceGroup.Type
}

func (c *Conf) Postprocess() (err error) {
	if c.Proto == "" {
		err = errors.New("missing value for protocol")
		return
	}
	p, ok := protos[c.Proto]
	if !ok {
		// unsupported, ignore for now
		return
	}
	unexpected := p.UnexpectedFields()
	for f := 1; f < endField; f <<= 1 {
		field := fieldNameMap[f]
		if p.RequiredFields&f != 0 && !c.Seen(field) {
			return errors.New("required field missing: " + field)
		}
		if unexpected&f != 0 && c.Seen(field) {
			return errors.New("unexpected field: " + field)
		}
	}
	if strings.HasSuffix(c.Name, "*") {
		c.Default = true
		c.Name = c.Name[:len(c.Name)-1]
	}
	return
}

type IPAddr string

func (a *IPAddr) UnmarshalYAML(node *yaml.Node) (err error) {
	*a = IPAddr(node.Value)
	_, err = a.Complete("9999")
	return
}

// Complete appends defaultPort to an address lacking a port.
func (a IPAddr) Complete(defaultPort string) (hostport string, err error) {
	addr := string(a)
	hostport = addr
	switch {
	case strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]"):
		fallthrough
	case strings.LastIndex(addr, ":") == -1:
		hostport = addr + ":" + defaultPort
	}
	_, _, err = net.SplitHostPort(hostport)
	return
}

type ConfList []*Conf

func (list ConfList) Names() []string {
	names := make([]string, len(list))
	for i, c := range list {
		name := c.Name
		if name == "" {
			name = c.Proto
		}
		names[i] = name
	}
	return names
}

func (list ConfList) Postprocess() (err error) {
	usedProtos := make(map[string]bool, len(protos))
	usedNames := make(map[string]bool, len(list))
	foundDefault := false

	for _, c := range list {
		err = c.Postprocess()
		if err != nil {
			return
		}
		usedProtos[c.Proto] = true
		if name := c.Name; name != "" {
			if usedNames[name] {
				err = errors.New("name used more than once: " + name)
				return
			}
			usedNames[name] = true
		}
		if c.Default {
			if foundDefault {
				err = errors.New("more than one marked as default")
				return
			}
			foundDefault = true
		}
	}
	for _, c := range list {
		if usedProtos[c.Name] {
			err = errors.New("proto name used as netconn name: " + c.Name)
			return
		}
	}
	return
}

func (list ConfList) Default() (index int) {
	for i, c := range list {
		if c.Default {
			index = i
			break
		}
	}
	return
}

type nameSpec struct {
	name    string
	options []string
}

func splitSpec(connSpec string) (ns []nameSpec) {
	for _, f := range strings.SplitN(connSpec, ":", 2) {
		fs := strings.Split(f, ",")
		ns = append(ns, nameSpec{name: fs[0], options: fs[1:]})
	}
	return
}

func (c *Conf) derive(f []nameSpec) (dc *Conf, err error) {
	var m Conf

	m = *c
	p, err := c.proto()
	if err != nil {
		return
	}

	flags := p.fieldFlags()
	if len(f) == 2 {
		if s := f[1].name; s != "" {
			if flags&FieldDev != 0 {
				m.Device = s
				dc = &m
			}
			if flags&FieldAddr != 0 {
				m.Addr = IPAddr(s)
				dc = &m
			}
		}
		if flags&FieldOpt != 0 {
			if s := f[1].options; len(s) != 0 {
				m.Options = s
				dc = &m
			}
		}
	}
	if s := f[0].options; len(s) != 0 {
		if flags&FieldOpt == 0 {
			err = errors.New("options not supported by " + c.Proto)
			return
		}
		m.Options = s
		dc = &m
	}
	return
}

// Match selects the entry described by connSpec, which has the form
//
//	[name][,options...][:interface[,options...]]
//
// where name is the name or protocol of an entry. If connSpec
// modifies the entry, a derived Conf is returned as mod.
func (list ConfList) Match(connSpec string) (index int, mod *Conf, err error) {
	if len(list) == 0 {
		err = errors.New("no network connections configured")
		return
	}
	if connSpec == "" {
		index = list.Default()
		return
	}
retry:
	f := splitSpec(connSpec)
	if net := f[0].name; net != "" {
		// name present, select matching entry
		for i, c := range list {
			if c.Name == net || c.Proto == net {
				index = i
				mod, err = c.derive(f)
				return
			}
		}
		if len(f) == 2 {
			err = errors.New("no matching network connection")
			return
		}
		if p := defaultProto; p != nil {
			connSpec = p.Name + ":" + connSpec
			goto retry
		}
		err = errors.New("no matching network connection")
		return
	}
	index = list.Default()
	mod, err = list[index].derive(f)
	return
}

// Select returns a copy of the entry matching connSpec, see Match.
// If the entry names no interface, the first interface of its
// protocol's group is filled in.
func (list ConfList) Select(connSpec string) (cf *Conf, err error) {
	index, cf, err := list.Match(connSpec)
	if err != nil {
		return
	}
	if cf == nil {
		m := *list[index]
		cf = &m
	}
	if cf.InterfaceName() == "" {
		if name := cf.DefaultInterfaceName(); name != "" {
			cf.SetInterfaceName(name)
		}
	}
	return
}

func (list ConfList) Dial(connSpec string) (conn *Conn, err error) {
	cf, err := list.Select(connSpec)
	if err != nil {
		return
	}
	return cf.Dial()
}

type file struct {
	Buses ConfList `yaml:"buses"`
}

// Parse reads the buses list of a configuration document.
func Parse(data []byte) (list ConfList, err error) {
	var f file
	err = yaml.Unmarshal(data, &f)
	if err != nil {
		return
	}
	err = f.Buses.Postprocess()
	if err != nil {
		return
	}
	return f.Buses, nil
}

func LoadFile(filename string) (ConfList, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

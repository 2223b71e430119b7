package netconn_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knieriem/robotis/netconn"
	_ "github.com/knieriem/robotis/netconn/serial"
	_ "github.com/knieriem/robotis/netconn/tcp"
)

const testConfig = `
buses:
  - name: arm
    proto: serial
    device: /dev/ttyUSB0
    options: [b57600]
  - name: remote*
    proto: tcp
    addr: 192.168.1.20
`

func TestParse(t *testing.T) {
	list, err := netconn.Parse([]byte(testConfig))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, []string{"arm", "remote"}, list.Names())
	require.Equal(t, 1, list.Default())

	arm := list[0]
	require.Equal(t, "/dev/ttyUSB0", arm.Device)
	require.Equal(t, []string{"b57600"}, arm.Options)
	require.True(t, arm.Seen("device"))
	require.False(t, arm.Seen("addr"))
	require.True(t, arm.SupportsOptions())
	require.Equal(t, "/dev/ttyUSB0", arm.InterfaceName())
	require.Equal(t, "arm:/dev/ttyUSB0,b57600", arm.MakeAddr(arm.Device, true))

	remote := list[1]
	require.True(t, remote.Default)
	require.Equal(t, netconn.IPAddr("192.168.1.20"), remote.Addr)
	require.False(t, remote.SupportsOptions())
	require.Equal(t, "ip", remote.InterfaceType())
	require.Greater(t, remote.SrcLineNum, arm.SrcLineNum)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name   string
		config string
		err    string
	}{
		{
			name:   "missing proto",
			config: "buses:\n  - device: /dev/ttyUSB0\n",
			err:    "missing value for protocol",
		},
		{
			name:   "unexpected field",
			config: "buses:\n  - proto: tcp\n    device: /dev/ttyUSB0\n",
			err:    "unexpected field: device",
		},
		{
			name:   "duplicate name",
			config: "buses:\n  - {name: a, proto: serial}\n  - {name: a, proto: tcp}\n",
			err:    "name used more than once: a",
		},
		{
			name:   "two defaults",
			config: "buses:\n  - {name: a*, proto: serial}\n  - {name: b*, proto: tcp}\n",
			err:    "more than one marked as default",
		},
		{
			name:   "proto as name",
			config: "buses:\n  - {name: serial, proto: tcp}\n  - {proto: serial}\n",
			err:    "proto name used as netconn name: serial",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := netconn.Parse([]byte(tc.config))
			require.EqualError(t, err, tc.err)
		})
	}

	_, err := netconn.Parse([]byte("buses:\n  - {proto: tcp, addr: '1.2.3.4:5:6'}\n"))
	require.Error(t, err)
}

func TestMatch(t *testing.T) {
	list, err := netconn.Parse([]byte(testConfig))
	require.NoError(t, err)

	i, mod, err := list.Match("")
	require.NoError(t, err)
	require.Equal(t, 1, i)
	require.Nil(t, mod)

	i, mod, err = list.Match("arm")
	require.NoError(t, err)
	require.Equal(t, 0, i)
	require.Nil(t, mod)

	i, mod, err = list.Match("remote:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, i)
	require.Equal(t, netconn.IPAddr("10.0.0.1"), mod.Addr)
	require.Equal(t, netconn.IPAddr("192.168.1.20"), list[1].Addr)

	_, mod, err = list.Match("arm:/dev/ttyUSB1,b115200")
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB1", mod.Device)
	require.Equal(t, []string{"b115200"}, mod.Options)

	// a bare device name selects the default protocol
	i, mod, err = list.Match("/dev/ttyACM0")
	require.NoError(t, err)
	require.Equal(t, 0, i)
	require.Equal(t, "/dev/ttyACM0", mod.Device)

	_, _, err = list.Match("foo:bar")
	require.Error(t, err)
	_, _, err = list.Match("remote,x")
	require.Error(t, err)

	_, _, err = netconn.ConfList(nil).Match("")
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robotis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	list, err := netconn.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = netconn.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestIPAddrComplete(t *testing.T) {
	hp, err := netconn.IPAddr("host").Complete("4001")
	require.NoError(t, err)
	require.Equal(t, "host:4001", hp)

	hp, err = netconn.IPAddr("host:5000").Complete("4001")
	require.NoError(t, err)
	require.Equal(t, "host:5000", hp)

	hp, err = netconn.IPAddr("[::1]").Complete("4001")
	require.NoError(t, err)
	require.Equal(t, "[::1]:4001", hp)
}

func TestFprintInterfaces(t *testing.T) {
	netconn.RegisterProtocol(&netconn.Proto{
		Name: "test",
		InterfaceGroup: &netconn.InterfaceGroup{
			Name:       "Test ports",
			SortPrefix: "Z",
			Hidden:     true,
			Interfaces: func() []netconn.Interface {
				return []netconn.Interface{{Name: "t0", Desc: "first"}}
			},
		},
	})

	var buf bytes.Buffer
	require.NoError(t, netconn.FprintInterfaces(&buf, false))
	require.NotContains(t, buf.String(), "Test ports")

	buf.Reset()
	require.NoError(t, netconn.FprintInterfaces(&buf, true))
	require.Contains(t, buf.String(), "Test ports:\n")
	require.Contains(t, buf.String(), "t0")
	require.Contains(t, buf.String(), "first")
}

func registerFake() {
	netconn.RegisterProtocol(&netconn.Proto{
		Name:           "fake",
		OptionalFields: netconn.DevFields,
		InterfaceGroup: &netconn.InterfaceGroup{
			Name:   "Fake ports",
			Type:   "fake",
			Hidden: true,
			Interfaces: func() []netconn.Interface {
				return []netconn.Interface{{Name: "f0"}, {Name: "f1"}}
			},
		},
		Dial: func(cf *netconn.Conf) (*netconn.Conn, error) {
			return &netconn.Conn{Addr: cf.MakeAddr(cf.Device, true), Device: cf.Device}, nil
		},
	})
}

func TestSelect(t *testing.T) {
	registerFake()
	list, err := netconn.Parse([]byte("buses:\n  - {name: a*, proto: fake}\n  - {name: b, proto: fake, device: f1}\n"))
	require.NoError(t, err)

	cf, err := list.Select("")
	require.NoError(t, err)
	require.Equal(t, "f0", cf.Device)
	require.Equal(t, "fake", cf.InterfaceType())
	require.Empty(t, list[0].Device, "list entry must stay unmodified")

	cf, err = list.Select("b")
	require.NoError(t, err)
	require.Equal(t, "f1", cf.InterfaceName())

	cf, err = list.Select("a:f9,x")
	require.NoError(t, err)
	require.Equal(t, "f9", cf.Device)
	require.Equal(t, []string{"x"}, cf.Options)

	_, err = list.Select("nonexistent:x")
	require.Error(t, err)
}

func TestDial(t *testing.T) {
	registerFake()
	list, err := netconn.Parse([]byte("buses:\n  - {name: a, proto: fake, options: [o1]}\n"))
	require.NoError(t, err)

	conn, err := list.Dial("a")
	require.NoError(t, err)
	require.Equal(t, "f0", conn.Device)
	require.Equal(t, "a:f0,o1", conn.Addr)
}

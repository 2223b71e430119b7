package bussim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knieriem/robotis"
	"github.com/knieriem/robotis/register"
)

func TestBus(t *testing.T) {
	sim := New()
	dev := sim.Add(1)
	sim.Add(2)
	bus := robotis.NewBus(sim)

	require.NoError(t, bus.Ping(1))
	require.Equal(t, robotis.ErrTimeout, bus.Ping(3))

	d := bus.Device(1)
	v, err := register.Read(d, register.PresentPosition)
	require.NoError(t, err)
	require.Equal(t, uint16(0x7ff), v)

	dev.MovingPolls = 2
	require.NoError(t, register.Write(d, register.GoalPosition, 100))
	for _, want := range []uint16{1, 1, 0} {
		v, err = register.Read(d, register.Moving)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
	require.Equal(t, uint16(100), dev.Uint16(register.PresentPosition.Addr))

	// broadcast writes reach all devices without a reply
	_, err = bus.Request(robotis.BroadcastAddr, robotis.OpWrite, register.TorqueEnable.Addr, []byte{1})
	require.NoError(t, err)
	require.Equal(t, byte(1), sim.Device(2).Mem[register.TorqueEnable.Addr])

	dev.Err = 0x04
	_, err = register.Read(d, register.Moving)
	require.Equal(t, robotis.DeviceError(0x04), err)

	require.Len(t, sim.Frames(), 9)
	sim.Reset()
	require.Empty(t, sim.Frames())
}

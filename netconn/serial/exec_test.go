package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	_, match := parseCommand("/dev/ttyUSB0")
	require.False(t, match)

	_, match = parseCommand("!")
	require.False(t, match)

	c, match := parseCommand("!socat - tcp:host:4001")
	require.True(t, match)
	require.Equal(t, []string{"socat", "-", "tcp:host:4001"}, c.Args)
}

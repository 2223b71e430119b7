package serial

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/knieriem/text/rc"
)

// A device spec "!cmd args..." runs cmd and talks
// to the bus through its standard input and output.
type cmd struct {
	*exec.Cmd
}

func parseCommand(spec string) (c *cmd, match bool) {
	if !strings.HasPrefix(spec, "!") {
		return
	}
	args := rc.Tokenize(spec[1:])
	if len(args) == 0 {
		return
	}
	match = true
	c = new(cmd)
	c.Cmd = exec.Command(args[0], args[1:]...)
	return
}

type cmdConn struct {
	io.Reader
	io.WriteCloser
	cmd *exec.Cmd
}

func (c *cmdConn) Close() error {
	err := c.WriteCloser.Close()
	c.cmd.Process.Kill()
	c.cmd.Wait()
	return err
}

func (c *cmd) Dial() (f io.ReadWriteCloser, err error) {
	w, err := c.StdinPipe()
	if err != nil {
		return
	}
	r, err := c.StdoutPipe()
	if err != nil {
		return
	}
	c.Stderr = os.Stderr
	err = c.Start()
	if err != nil {
		return
	}
	f = &cmdConn{Reader: r, WriteCloser: w, cmd: c.Cmd}
	return
}

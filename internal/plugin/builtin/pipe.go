package builtin

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os/exec"

	"github.com/creack/pty"
	"github.com/wirepod/wirepod/internal/plugin"
)

// PipeDescriptor spawns a child process once at activation, streaming
// 32-bit float samples to its stdin and reading them back from its
// stdout, one sample at a time. Writes and reads block until the child
// accepts or produces the sample; only when a write or read fails does the
// output repeat the last sample read. Config "pty" requests a
// pseudoterminal instead of plain pipes, for child processes that insist
// on a tty (e.g. interactive filters).
var PipeDescriptor = &plugin.Descriptor{
	Name:        "pipe",
	Description: "streams audio through a child process's stdin/stdout",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		command := configString(cfg, "command", "")
		if command == "" {
			return nil, plugin.Errorf(plugin.BadConfig, "pipe: config requires a non-empty \"command\"")
		}
		usePty := cfg != nil && cfg["pty"] == true

		return &pipeInstance{
			ports:   newPorts(),
			command: command,
			usePty:  usePty,
		}, nil
	},
}

type pipeInstance struct {
	ports
	command string
	usePty  bool

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	ptyFd  io.ReadWriteCloser

	lastSample float32
}

func (p *pipeInstance) Activate() error {
	p.cmd = exec.Command("/bin/sh", "-c", p.command)

	if p.usePty {
		f, err := pty.Start(p.cmd)
		if err != nil {
			return plugin.WrapErr(plugin.Pipe, err, "pipe: failed to start %q under a pty", p.command)
		}
		p.ptyFd = f
		p.stdout = bufio.NewReader(f)
		p.stdin = f
		return nil
	}

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return plugin.WrapErr(plugin.Pipe, err, "pipe: stdin pipe for %q", p.command)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return plugin.WrapErr(plugin.Pipe, err, "pipe: stdout pipe for %q", p.command)
	}
	if err := p.cmd.Start(); err != nil {
		return plugin.WrapErr(plugin.Pipe, err, "pipe: starting %q", p.command)
	}

	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	return nil
}

func (p *pipeInstance) Deactivate() error {
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.ptyFd != nil {
		p.ptyFd.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	return nil
}

func (p *pipeInstance) Run(n int) error {
	in, out := p.in("in", n), p.out("out", n)

	var wireBuf [4]byte
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(wireBuf[:], math.Float32bits(in[i]))
		if _, err := p.stdin.Write(wireBuf[:]); err != nil {
			out[i] = p.lastSample
			continue
		}

		if _, err := io.ReadFull(p.stdout, wireBuf[:]); err != nil {
			out[i] = p.lastSample
			continue
		}
		s := math.Float32frombits(binary.LittleEndian.Uint32(wireBuf[:]))
		out[i] = s
		p.lastSample = s
	}
	return nil
}

// Command wirepod-ctl is an interactive terminal inspector/control client
// for a running wirepod-graph instance, connecting over the POD wire
// protocol control socket. jivetalking's cmd/main.go
// kong-parsed CLI driving a bubbletea program, adapted from its one-shot
// audio-processing flow to a long-lived connect/poll/send TUI.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wirepod/wirepod/internal/proto"
	"github.com/wirepod/wirepod/internal/ui"
	"github.com/wirepod/wirepod/internal/wire"
)

var version = "dev"

// CLI defines wirepod-ctl's command-line interface.
type CLI struct {
	Version    bool   `short:"v" help:"Show version information."`
	SocketName string `short:"s" default:"pipewire-0" help:"Control socket name under the runtime directory."`
	Set        struct {
		Control string  `arg:"" help:"Control reference, \"node:control\"."`
		Value   float64 `arg:"" help:"New control value."`
	} `cmd:"" help:"Set one control value non-interactively and exit."`
	Inspect struct{} `cmd:"" default:"1" help:"Launch the interactive inspector (default)."`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("wirepod-ctl"),
		kong.Description("Interactive control client for the POD wire protocol."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cliArgs.Version {
		fmt.Printf("wirepod-ctl %s\n", version)
		os.Exit(0)
	}

	path := wire.SocketPath(cliArgs.SocketName)
	conn, err := wire.Dial(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wirepod-ctl: connecting to %s: %v\n", path, err)
		os.Exit(1)
	}

	iface := proto.NewGraphInterface()

	switch ctx.Command() {
	case "set <control> <value>":
		if err := sendSetControl(conn, iface, cliArgs.Set.Control, cliArgs.Set.Value); err != nil {
			fmt.Fprintf(os.Stderr, "wirepod-ctl: %v\n", err)
			os.Exit(1)
		}
	default:
		model := ui.NewInspectorModel(conn, iface)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "wirepod-ctl: %v\n", err)
			os.Exit(1)
		}
	}
}

func sendSetControl(conn *wire.Connection, iface *proto.Interface, control string, value float64) error {
	args := proto.SetControlsArgs{Params: []proto.ControlParam{{Name: control, Value: value}}}
	if err := proto.Send(conn, ui.GraphObjectID, iface.Methods[proto.OpSetControls], args); err != nil {
		return err
	}
	return conn.Flush()
}

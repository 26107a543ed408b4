// Command wirepod-graph hosts a filter graph loaded from a YAML document,
// optionally streaming through a PortAudio full-duplex device and/or
// exposing a control socket for runtime control changes. Grounded on
// cmd/direwolf/main.go's pflag-based option parsing and config-file-plus-
// overrides shape, replacing its audio-TNC domain with the filter-graph
// engine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/wirepod/wirepod/internal/graph"
	"github.com/wirepod/wirepod/internal/logging"
	"github.com/wirepod/wirepod/internal/plugin"
	"github.com/wirepod/wirepod/internal/plugin/builtin"
	"github.com/wirepod/wirepod/internal/proto"
	"github.com/wirepod/wirepod/internal/wire"
)

func main() {
	var configFile = pflag.StringP("config-file", "c", "", "Filter graph YAML document (required).")
	var sampleRate = pflag.Float64P("sample-rate", "r", 48000, "Processing sample rate in Hz.")
	var quantum = pflag.IntP("quantum", "q", 1024, "Samples processed per callback.")
	var device = pflag.BoolP("device", "d", false, "Stream through the default PortAudio full-duplex device instead of idling.")
	var socketName = pflag.StringP("socket-name", "s", wire.DefaultSocketName, "Control socket name under the runtime directory.")
	var noSocket = pflag.BoolP("no-socket", "n", false, "Don't expose a control socket.")
	var logDir = pflag.StringP("log-dir", "l", "", "Directory for daily-rotating run logs. Empty disables file logging.")
	var debug = pflag.BoolP("debug", "D", false, "Enable debug-level logging.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "wirepod-graph - filter graph host for the POD wire protocol.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: wirepod-graph -c graph.yaml [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help || *configFile == "" {
		pflag.Usage()
		if *configFile == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	level := charmlog.InfoLevel
	if *debug {
		level = charmlog.DebugLevel
	}
	log, err := newLogger(*logDir, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wirepod-graph: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	data, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatal("reading config file", "path", *configFile, "err", err)
	}
	cfg, err := graph.ParseConfig(data)
	if err != nil {
		log.Fatal("parsing config file", "err", err)
	}

	registry := plugin.NewRegistry()
	registry.Register(builtin.NewLoader())
	builtin.RegisterUnsupportedLoaders(registry)

	g, err := graph.Load(cfg, registry, *sampleRate)
	if err != nil {
		log.Fatal("loading graph", "err", err)
	}

	nInputs := len(cfg.Inputs)
	if nInputs == 0 {
		nInputs = 1
	}
	nOutputs := len(cfg.Outputs)
	if nOutputs == 0 {
		nOutputs = nInputs
	}
	if err := g.Setup(nInputs, nOutputs); err != nil {
		log.Fatal("setting up graph", "err", err)
	}
	if err := g.Activate(*quantum); err != nil {
		log.Fatal("activating graph", "err", err)
	}
	log.Info("graph activated", "nodes", len(g.Nodes), "handles", g.NHndl, "quantum", *quantum)

	var srv *controlServer
	if !*noSocket {
		srv, err = newControlServer(*socketName, g, log)
		if err != nil {
			log.Fatal("starting control socket", "err", err)
		}
		defer srv.Close()
		go srv.Serve()
		log.Info("control socket listening", "name", *socketName)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	if *device {
		stream, err := startPortAudio(g, nInputs, nOutputs, *sampleRate, *quantum)
		if err != nil {
			log.Fatal("starting portaudio stream", "err", err)
		}
		defer stopPortAudio(stream)
		log.Info("portaudio stream started")
	} else {
		log.Info("no audio device attached; idling until signal")
	}

	<-sig
	log.Info("shutting down")
}

func newLogger(dir string, level charmlog.Level) (*logging.Logger, error) {
	if dir == "" {
		return logging.New(os.Stderr, level), nil
	}
	return logging.NewDaily(dir, logging.DefaultDailyPattern, level)
}

// controlServer binds the graph's control interface behind a single
// well-known object id and accepts any number of client connections,
// dispatching their messages serially per connection.
type controlServer struct {
	ln       *wire.Listener
	graph    *graph.Graph
	iface    *proto.Interface
	registry *proto.Registry
	log      *logging.Logger
	objectID uint32
	quit     chan struct{}
}

const graphObjectID uint32 = 1

func newControlServer(socketName string, g *graph.Graph, log *logging.Logger) (*controlServer, error) {
	path := wire.SocketPath(socketName)
	ln, err := wire.Listen(path)
	if err != nil {
		return nil, err
	}
	iface := proto.NewGraphInterface()
	registry := proto.NewRegistry()
	registry.Register(iface)
	return &controlServer{
		ln: ln, graph: g, iface: iface, registry: registry, log: log,
		objectID: graphObjectID, quit: make(chan struct{}),
	}, nil
}

func (s *controlServer) Close() error {
	close(s.quit)
	return s.ln.Close()
}

func (s *controlServer) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Error("accept failed", "err", err)
				return
			}
		}
		go s.handleConn(conn)
	}
}

func (s *controlServer) handleConn(conn *wire.Connection) {
	dispatcher := proto.NewDispatcher(s.registry)
	dispatcher.Bind(s.objectID, proto.GraphInterfaceID, proto.PermWrite|proto.PermRead)

	for {
		msg, ok, err := conn.GetNext()
		if err != nil {
			return
		}
		if !ok {
			if err := conn.Refill(); err != nil {
				if werr, isWire := err.(*wire.Error); isWire && werr.Kind == wire.TryAgain {
					continue
				}
				return
			}
			continue
		}
		name, args, err := dispatcher.Dispatch(msg)
		msg.Release()
		if err != nil {
			s.log.Warn("dispatch failed", "err", err)
			continue
		}
		s.apply(name, args)
	}
}

func (s *controlServer) apply(name string, args any) {
	switch a := args.(type) {
	case proto.SetControlsArgs:
		params := make(map[string]float64, len(a.Params))
		for _, p := range a.Params {
			params[p.Name] = p.Value
		}
		if err := s.graph.SetControls(params); err != nil {
			s.log.Warn("set_controls failed", "err", err)
		}
	case proto.SetVolumeArgs:
		s.log.Info("set_volume", "mute", a.Mute, "channels", a.Channels)
	case proto.ResetArgs:
		s.log.Info("reset requested; this server does not reset the graph")
	default:
		s.log.Warn("unhandled method", "name", name)
	}
}

// startPortAudio opens a full-duplex float32 stream and pumps samples
// through g on every callback. PortAudio's callback buffers are
// interleaved by channel; the graph operates on planar []float32 slices
// per port, so each callback deinterleaves on the way in and
// reinterleaves on the way out.
func startPortAudio(g *graph.Graph, nInputs, nOutputs int, sampleRate float64, quantum int) (*portaudio.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	planarIn := make([][]float32, nInputs)
	planarOut := make([][]float32, nOutputs)
	for i := range planarIn {
		planarIn[i] = make([]float32, quantum)
	}
	for i := range planarOut {
		planarOut[i] = make([]float32, quantum)
	}

	callback := func(in, out []float32) {
		n := len(out) / nOutputs
		for i := 0; i < len(in); i++ {
			ch := i % nInputs
			frame := i / nInputs
			if frame < quantum {
				planarIn[ch][frame] = in[i]
			}
		}
		if err := g.Run(planarIn, planarOut, n); err != nil {
			for i := range out {
				out[i] = 0
			}
			return
		}
		for i := 0; i < len(out); i++ {
			ch := i % nOutputs
			frame := i / nOutputs
			out[i] = planarOut[ch][frame]
		}
	}

	stream, err := portaudio.OpenDefaultStream(nInputs, nOutputs, sampleRate, quantum, callback)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return stream, nil
}

func stopPortAudio(stream *portaudio.Stream) {
	stream.Stop()
	stream.Close()
	portaudio.Terminate()
}

package wire

import (
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultSocketName is the socket file name used when none is given.
const DefaultSocketName = "pipewire-0"

// RuntimeDir resolves the directory socket paths are relative to, trying
// PIPEWIRE_RUNTIME_DIR, then XDG_RUNTIME_DIR, then USERPROFILE in turn.
func RuntimeDir() string {
	for _, env := range []string{"PIPEWIRE_RUNTIME_DIR", "XDG_RUNTIME_DIR", "USERPROFILE"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return os.TempDir()
}

// SocketPath joins RuntimeDir with name, defaulting name to
// DefaultSocketName when empty.
func SocketPath(name string) string {
	if name == "" {
		name = DefaultSocketName
	}
	return filepath.Join(RuntimeDir(), name)
}

// Listener owns the listening socket and its sibling lock file, held
// exclusively for the process lifetime the server runs.
type Listener struct {
	ln       *net.UnixListener
	lockFile *os.File
}

// Listen binds an AF_UNIX SOCK_STREAM socket at path after taking an
// exclusive, non-blocking flock on path+".lock". It removes any stale
// socket file left by a crashed previous server before binding.
func Listen(path string) (*Listener, error) {
	lockPath := path + ".lock"
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errorf(Pipe, "open lock file: %v", err)
	}
	if err := unix.Flock(int(lf.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lf.Close()
		return nil, errorf(Pipe, "lock %s: %v", lockPath, err)
	}

	_ = os.Remove(path)
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		lf.Close()
		return nil, errorf(Invalid, "resolve %s: %v", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		unix.Flock(int(lf.Fd()), unix.LOCK_UN)
		lf.Close()
		return nil, errorf(Pipe, "listen %s: %v", path, err)
	}
	return &Listener{ln: ln, lockFile: lf}, nil
}

// Accept blocks for the next incoming client connection.
func (l *Listener) Accept() (*Connection, error) {
	c, err := l.ln.AcceptUnix()
	if err != nil {
		return nil, errorf(Pipe, "accept: %v", err)
	}
	return NewConnection(c), nil
}

// Close releases the listening socket and its lock file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	unix.Flock(int(l.lockFile.Fd()), unix.LOCK_UN)
	l.lockFile.Close()
	os.Remove(l.lockFile.Name())
	return err
}

// Dial connects to a server's AF_UNIX socket at path.
func Dial(path string) (*Connection, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, errorf(Invalid, "resolve %s: %v", path, err)
	}
	c, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, errorf(Pipe, "dial %s: %v", path, err)
	}
	return NewConnection(c), nil
}

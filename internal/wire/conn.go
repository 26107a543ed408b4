package wire

import (
	"net"

	"github.com/wirepod/wirepod/internal/pod"
	"golang.org/x/sys/unix"
)

func closeFD(fd int) { _ = unix.Close(fd) }

type outBuf struct {
	data []byte
	fds  []int
}

type inBuf struct {
	data   []byte
	offset int
	fds    []int
}

// Connection manages framed POD message exchange over one AF_UNIX
// SOCK_STREAM socket, module-protocol-native/connection.c:
// Begin/End build one outbound message, Flush writes buffered messages
// and their FDs, Refill reads more bytes waiting at most a millisecond, and GetNext
// demarshals complete frames out of whatever is currently buffered.
type Connection struct {
	sock *net.UnixConn

	out outBuf
	in  inBuf

	enterCount int

	pendingObjectID uint32
	pendingOpcode   uint8
	pendingFDs      []int
	builder         *pod.Builder
	nextSeq         uint32

	footer *Footer
}

// NewConnection wraps an already-connected AF_UNIX SOCK_STREAM socket.
func NewConnection(sock *net.UnixConn) *Connection {
	return &Connection{sock: sock, footer: NewFooter()}
}

// Footer returns the connection's footer state, for setting an outbound
// generation or reading the peer's.
func (c *Connection) Footer() *Footer { return c.footer }

// Enter marks re-entry into the connection's dispatch loop. Leave must be
// called once per Enter; nested calls are reference counted so a handler
// invoked from within dispatch can safely call back into the connection.
func (c *Connection) Enter() { c.enterCount++ }

// Leave balances Enter.
func (c *Connection) Leave() {
	if c.enterCount > 0 {
		c.enterCount--
	}
}

// Begin opens a new outbound message addressed to objectID with the given
// opcode, returning a builder for its single top-level payload POD.
func (c *Connection) Begin(objectID uint32, opcode uint8) (*pod.Builder, error) {
	if c.builder != nil {
		return nil, errorf(Protocol, "begin called while a message is already open")
	}
	c.pendingObjectID = objectID
	c.pendingOpcode = opcode
	c.pendingFDs = nil
	c.builder = pod.NewBuilder()
	return c.builder, nil
}

// AddFD registers fd to travel with the message currently open via Begin,
// returning the index to embed in an Fd POD. Indices are scoped to the
// current message, not the whole connection.
func (c *Connection) AddFD(fd int) (uint32, error) {
	if c.builder == nil {
		return 0, errorf(Protocol, "add_fd called without an open message")
	}
	for i, v := range c.pendingFDs {
		if v == fd {
			return uint32(i), nil
		}
	}
	if len(c.pendingFDs) >= maxFDs {
		return 0, errorf(NoSpace, "too many fds on one message")
	}
	c.pendingFDs = append(c.pendingFDs, fd)
	return uint32(len(c.pendingFDs) - 1), nil
}

// End finalizes the message opened by Begin, appending a footer POD when
// the connection has one pending, and queues it for Flush.
func (c *Connection) End() error {
	if c.builder == nil {
		return errorf(Protocol, "end called without begin")
	}
	payload := c.builder.Bytes()
	body := payload
	if c.footer.hasPending() {
		fb := pod.NewBuilder()
		c.footer.marshal(fb)
		body = make([]byte, 0, len(payload)+len(fb.Bytes()))
		body = append(body, payload...)
		body = append(body, fb.Bytes()...)
	}

	seq := c.nextSeq
	c.nextSeq++

	hdr := make([]byte, headerLen)
	writeHeader(hdr, c.pendingObjectID, c.pendingOpcode, uint32(len(body)), seq, uint32(len(c.pendingFDs)))
	c.out.data = append(c.out.data, hdr...)
	c.out.data = append(c.out.data, body...)
	c.out.fds = append(c.out.fds, c.pendingFDs...)

	c.builder = nil
	c.pendingFDs = nil
	return nil
}

// Flush writes every queued outbound message and its FDs in a single
// sendmsg call. A short write leaves the unsent remainder queued for the
// next Flush, matching connection.c's flush loop; per that same source,
// the FD set is not retried on a short write.
func (c *Connection) Flush() error {
	if len(c.out.data) == 0 {
		return nil
	}
	var oob []byte
	if len(c.out.fds) > 0 {
		oob = unix.UnixRights(c.out.fds...)
	}
	n, _, err := c.sock.WriteMsgUnix(c.out.data, oob, nil)
	if err != nil {
		return errorf(Pipe, "sendmsg: %v", err)
	}
	c.out.data = append([]byte(nil), c.out.data[n:]...)
	c.out.fds = nil
	return nil
}

// Clear discards all queued outbound and buffered inbound data.
func (c *Connection) Clear() {
	c.out.data = nil
	c.out.fds = nil
	c.in.data = nil
	c.in.offset = 0
	c.in.fds = nil
}

// Refill performs one recvmsg call, appending whatever bytes and FDs
// arrived to the inbound buffer. It waits at most about a millisecond and
// returns a TryAgain error when no data arrived in that time; the embedder
// is expected to retry after its event loop reports readability.
func (c *Connection) Refill() error {
	if c.in.offset > 0 {
		c.in.data = append(c.in.data[:0], c.in.data[c.in.offset:]...)
		c.in.offset = 0
	}
	buf := make([]byte, 32*1024)
	oob := make([]byte, unix.CmsgSpace(maxFDs*4))

	if err := c.sock.SetReadDeadline(immediateDeadline()); err == nil {
		defer c.sock.SetReadDeadline(noDeadline)
	}

	n, oobn, _, _, err := c.sock.ReadMsgUnix(buf, oob)
	if err != nil {
		if isTimeoutOrWouldBlock(err) {
			return errorf(TryAgain, "no data available")
		}
		return errorf(Pipe, "recvmsg: %v", err)
	}
	if n == 0 && oobn == 0 {
		return errorf(Pipe, "peer closed connection")
	}
	c.in.data = append(c.in.data, buf[:n]...)
	if oobn > 0 {
		fds, err := parseRights(oob[:oobn])
		if err != nil {
			return errorf(Protocol, "malformed ancillary data: %v", err)
		}
		c.in.fds = append(c.in.fds, fds...)
	}
	return nil
}

// GetNext demarshals the next complete message buffered by Refill. ok is
// false when the buffer doesn't yet hold a full frame; the caller should
// Refill and retry.
func (c *Connection) GetNext() (msg *Message, ok bool, err error) {
	data := c.in.data[c.in.offset:]
	if len(data) < headerLen {
		return nil, false, nil
	}
	objectID, opcode, size, seq, nFDs := readHeader(data)
	total := headerLen + int(size)
	if len(data) < total {
		return nil, false, nil
	}
	if int(nFDs) > len(c.in.fds) {
		return nil, false, errorf(Protocol, "message declares %d fds but only %d buffered", nFDs, len(c.in.fds))
	}

	body := append([]byte(nil), data[headerLen:total]...)
	c.in.offset += total

	var fds []int
	if nFDs > 0 {
		fds = c.in.fds[:nFDs]
		c.in.fds = c.in.fds[nFDs:]
	}

	payload, footer, err := splitBody(body)
	if err != nil {
		return nil, false, err
	}
	if len(footer) > 0 {
		if err := c.footer.demarshal(footer); err != nil {
			return nil, false, err
		}
	}

	m := &Message{
		ObjectID: objectID,
		Opcode:   opcode,
		Seq:      seq,
		Payload:  payload,
		Footer:   footer,
		fds:      fds,
		claimed:  make([]bool, len(fds)),
	}
	return m, true, nil
}

// splitBody separates a message body into its one required payload POD
// and an optional trailing footer POD, per the "body ... ends
// with optional footer POD".
func splitBody(body []byte) (payload, footer []byte, err error) {
	p := pod.NewParser(body)
	if err := p.SkipValue(); err != nil {
		return nil, nil, err
	}
	payload = body[:p.Pos()]
	if p.Pos() < len(body) {
		footer = body[p.Pos():]
	}
	return payload, footer, nil
}

package wire

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// immediateDeadline returns a read deadline one millisecond from now. A
// deadline already in the past makes ReadMsgUnix fail with a timeout even
// when data is queued, so Refill uses this short future deadline instead:
// queued data is read at once, and an empty socket times out after at
// most a millisecond instead of parking the goroutine.
func immediateDeadline() time.Time { return time.Now().Add(time.Millisecond) }

// noDeadline clears any deadline previously set on the socket.
var noDeadline = time.Time{}

func isTimeoutOrWouldBlock(err error) bool {
	var ne net.Error
	if ok := asNetError(err, &ne); ok {
		return ne.Timeout()
	}
	return false
}

func asNetError(err error, target *net.Error) bool {
	ne, ok := err.(net.Error)
	if !ok {
		return false
	}
	*target = ne
	return true
}

// parseRights extracts the FDs carried in a SCM_RIGHTS ancillary message.
func parseRights(oob []byte) ([]int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, m := range msgs {
		rights, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

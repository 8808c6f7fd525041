package exchange

import (
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

func SafeClose(conn io.Closer) {
	defer func() {
		_ = recover()
	}()
	if conn != nil {
		conn.Close()
	}
}

func IsValidHost(addr string) (err error) {
	var h string
	h, _, err = net.SplitHostPort(addr + ":1")
	if err != nil {
		return
	}
	if h == NULL {
		err = errors.New("Invalid address " + addr)
	}
	return
}

func IsClosedError(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF || err == io.ErrClosedPipe {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "closed") || strings.Contains(msg, "reset")
}

func IsTimeout(err error) bool {
	var netError, ok = err.(net.Error)
	if ok { // tcp timeout
		return netError.Timeout()
	} else {
		// kcp: errTimeout = errors.New("timeout")
		return err != nil && err.Error() == "timeout"
	}
}

// zero timeout blocks forever
func setRTimeout(conn net.Conn, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	e := conn.SetReadDeadline(time.Now().Add(timeout))
	ThrowErr(e)
}

func setWTimeout(conn net.Conn, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	e := conn.SetWriteDeadline(time.Now().Add(timeout))
	ThrowErr(e)
}

func port(addr net.Addr) int {
	switch v := addr.(type) {
	case *net.TCPAddr:
		return v.Port
	case *net.UDPAddr:
		return v.Port
	default:
		return 0
	}
}

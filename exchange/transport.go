package exchange

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/Lafeng/keyx/glog"
	kcp "github.com/xtaci/kcp-go/v5"
)

const (
	KCP_FEC_DATASHARD   = 10
	KCP_FEC_PARITYSHARD = 3
	DSCP_EF             = 46
)

// a kcp listener only learns of a peer from its first packet, so the
// dialer opens the stream with KCP_HELLO
const (
	KCP_HELLO = 0xd5
	KCP_BYE   = 0x5d
)

const KCP_LINGER = 3 * time.Second

// Transport carries exactly one connection: the Responder accepts one,
// the Initiator dials one.
type Transport struct {
	rawURL    string
	host      string
	port      int
	asServer  bool
	transType string
	kcpMode   string
	kcpParams []int
	mtu       int
	swnd      int
	rwnd      int
	sbuf      int
	rbuf      int
}

// NewTransport parses the transport text of config.
//
//	tcp
//	kcp://host:port/mode?mtu=1&rwnd=2&rbuf=3
//	kcp:///custom/0,20,5,1
//
// Host and port of the URL, when present, override the given ones.
func NewTransport(str, host string, port int, asServer bool) (*Transport, error) {
	var t = &Transport{
		rawURL:   str,
		host:     host,
		port:     port,
		asServer: asServer,
	}
	if str == NULL {
		str = "tcp"
	}
	if !strings.Contains(str, "://") {
		str += "://"
	}
	if err := t.parseTransport(str); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transport) parseTransport(str string) error {
	u, err := url.Parse(str)
	if err != nil {
		return CONF_ERROR.Apply(err)
	}
	if h := u.Hostname(); h != NULL {
		t.host = h
	}
	if p := u.Port(); p != NULL {
		if t.port, err = strconv.Atoi(p); err != nil {
			goto err
		}
	}

	switch u.Scheme {
	case "tcp", NULL:
		t.transType = "tcp"
		return nil // TCP OK

	case "kcp":
		t.transType = "kcp"
		goto kcp

	default:
		goto err
	}

kcp:
	{
		t.kcpMode = strings.TrimPrefix(u.Path, "/")
		switch t.kcpMode {
		case "normal":
			t.kcpParams = []int{0, 40, 7, 1}
		case "fast", NULL:
			t.kcpMode = "fast"
			t.kcpParams = []int{0, 20, 5, 1}
		case "turbo":
			t.kcpParams = []int{0, 10, 2, 1}
		default:
			if strings.HasPrefix(t.kcpMode, "custom/") {
				if t.kcpParams, err = toIntArray(t.kcpMode[7:], 4); err == nil {
					break
				}
			}
			goto err
		}

		var params = values(u.Query())
		if t.mtu, err = params.getInt("mtu", 1400); err != nil {
			goto err
		}
		if t.rwnd, err = params.getInt("rwnd", 128); err != nil {
			goto err
		}
		if t.rbuf, err = params.getInt("rbuf", 1<<20); err != nil {
			goto err
		}
		t.swnd = t.rwnd
		t.sbuf = t.rbuf
		return nil
	}

err:
	return CONF_ERROR.Apply("Transport=" + t.rawURL)
}

func (t *Transport) TransType() string {
	return t.transType
}

func (t *Transport) Addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *Transport) String() string {
	switch t.transType {
	case "kcp":
		return fmt.Sprintf("kcp://%s/%s", t.Addr(), t.kcpMode)
	default:
		return fmt.Sprintf("tcp://%s", t.Addr())
	}
}

// Dial opens the single outgoing connection of the Initiator.
func (t *Transport) Dial(timeout time.Duration) (conn net.Conn, err error) {
	switch t.transType {
	case "tcp":
		if timeout > 0 {
			conn, err = net.DialTimeout("tcp", t.Addr(), timeout)
		} else {
			conn, err = net.Dial("tcp", t.Addr())
		}
	case "kcp":
		conn, err = t.dialKcpConnection()
	default:
		return nil, ILLEGAL_STATE
	}
	if err != nil {
		return nil, PEER_UNREACHABLE.Apply(err)
	}
	return conn, nil
}

func (t *Transport) dialKcpConnection() (net.Conn, error) {
	var kcpconn, err = kcp.DialWithOptions(t.Addr(), nil, KCP_FEC_DATASHARD, KCP_FEC_PARITYSHARD)
	if err != nil {
		return nil, err
	}
	if err = t.setupKcpConnection(kcpconn); err != nil {
		kcpconn.Close()
		return nil, err
	}
	if _, err = kcpconn.Write([]byte{KCP_HELLO}); err != nil {
		kcpconn.Close()
		return nil, err
	}
	return &kcpConn{UDPSession: kcpconn}, nil
}

func (t *Transport) setupKcpConnection(kcpconn *kcp.UDPSession) (err error) {
	// NoDelay, Interval, Resend, NoCongestion
	var p = t.kcpParams
	kcpconn.SetNoDelay(p[0], p[1], p[2], p[3])
	kcpconn.SetWindowSize(t.swnd, t.rwnd)
	kcpconn.SetMtu(t.mtu)
	kcpconn.SetACKNoDelay(true)
	kcpconn.SetStreamMode(true)
	kcpconn.SetWriteDelay(false)

	if !t.asServer {
		if err = kcpconn.SetDSCP(DSCP_EF); err != nil {
			log.Warningln("SetDSCP:", err)
		}
		if err = kcpconn.SetReadBuffer(t.rbuf); err != nil {
			log.Errorln("SetReadBuffer:", err)
			return
		}
		if err = kcpconn.SetWriteBuffer(t.sbuf); err != nil {
			log.Errorln("SetWriteBuffer:", err)
			return
		}
	}
	return nil
}

func (t *Transport) setupKcpListener(listener *kcp.Listener) (err error) {
	if err = listener.SetDSCP(DSCP_EF); err != nil {
		log.Warningln("SetDSCP:", err)
	}
	if err = listener.SetReadBuffer(t.rbuf); err != nil {
		log.Errorln("SetReadBuffer:", err)
		return
	}
	if err = listener.SetWriteBuffer(t.sbuf); err != nil {
		log.Errorln("SetWriteBuffer:", err)
		return
	}
	return nil
}

// Listen binds the Responder address.
func (t *Transport) Listen() (net.Listener, error) {
	switch t.transType {
	case "tcp":
		ln, err := net.Listen("tcp", t.Addr())
		if err != nil {
			return nil, LOCAL_BIND_ERROR.Apply(err)
		}
		return ln, nil
	case "kcp":
		ln, err := kcp.ListenWithOptions(t.Addr(), nil, KCP_FEC_DATASHARD, KCP_FEC_PARITYSHARD)
		if err != nil {
			return nil, LOCAL_BIND_ERROR.Apply(err)
		}
		if err = t.setupKcpListener(ln); err != nil {
			ln.Close()
			return nil, LOCAL_BIND_ERROR.Apply(err)
		}
		return ln, nil
	}
	return nil, ILLEGAL_STATE
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// AcceptOne takes exactly one connection from ln and closes ln. A kcp
// session shares the socket of its listener, which then lives until the
// session is closed.
func (t *Transport) AcceptOne(ln net.Listener, timeout time.Duration) (net.Conn, error) {
	var keepListener bool
	defer func() {
		if !keepListener {
			SafeClose(ln)
		}
	}()
	if d, y := ln.(deadliner); y && timeout > 0 {
		if err := d.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, TRANSPORT_ERROR.Apply(err)
		}
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, TRANSPORT_ERROR.Apply(err)
	}
	if kcpconn, y := conn.(*kcp.UDPSession); y {
		if err = t.acceptKcpHello(kcpconn, timeout); err != nil {
			SafeClose(conn)
			return nil, err
		}
		keepListener = true
		conn = &kcpConn{UDPSession: kcpconn, ln: ln}
	}
	if log.V(log.LV_SESSION) {
		log.Infof("Accepted peer %s on port %d\n", conn.RemoteAddr(), port(ln.Addr()))
	}
	return conn, nil
}

// kcp has no FIN: segments still unacknowledged when a session closes
// are never resent. The accepting side therefore answers KCP_BYE once it
// is done, and the dialing side, after having written, waits for it up to
// KCP_LINGER before closing.
type kcpConn struct {
	*kcp.UDPSession
	ln      net.Listener
	written bool
}

func (c *kcpConn) Write(b []byte) (int, error) {
	c.written = true
	return c.UDPSession.Write(b)
}

func (c *kcpConn) Close() error {
	if c.ln != nil {
		c.SetWriteDeadline(time.Now().Add(KCP_LINGER))
		c.UDPSession.Write([]byte{KCP_BYE})
	} else if c.written {
		var bye [1]byte
		c.SetReadDeadline(time.Now().Add(KCP_LINGER))
		if _, err := c.Read(bye[:]); err != nil && log.V(log.LV_WIRE) {
			log.Infoln("kcp close without bye:", err)
		}
	}
	err := c.UDPSession.Close()
	if c.ln != nil {
		SafeClose(c.ln)
	}
	return err
}

func (t *Transport) acceptKcpHello(kcpconn *kcp.UDPSession, timeout time.Duration) error {
	if err := t.setupKcpConnection(kcpconn); err != nil {
		return TRANSPORT_ERROR.Apply(err)
	}
	var hello = make([]byte, 1)
	if timeout > 0 {
		kcpconn.SetReadDeadline(time.Now().Add(timeout))
	}
	if _, err := io.ReadFull(kcpconn, hello); err != nil {
		return TRANSPORT_ERROR.Apply(err)
	}
	if hello[0] != KCP_HELLO {
		return PROTOCOL_FORMAT_ERROR.Apply(fmt.Sprintf("kcp hello %#x", hello[0]))
	}
	return nil
}

type values url.Values

func (v values) getOne(k string) string {
	var arr = v[k]
	if len(arr) == 0 {
		return NULL
	} else {
		return arr[0]
	}
}

func (v values) getInt(k string, defaultValue int) (int, error) {
	var value = v.getOne(k)
	if value == NULL {
		return defaultValue, nil
	} else {
		return strconv.Atoi(value)
	}
}

func toIntArray(str string, num int) ([]int, error) {
	var parts = strings.Split(str, ",")
	if len(parts) != num {
		return nil, fmt.Errorf("expected %d numbers in %q", num, str)
	}
	var arr = make([]int, num)
	for i, s := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		arr[i] = n
	}
	return arr, nil
}

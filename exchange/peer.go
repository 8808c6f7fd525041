package exchange

import (
	"net"

	"github.com/Lafeng/keyx/exception"
	log "github.com/Lafeng/keyx/glog"
)

func (c *Config) sessionOptions() Options {
	return Options{
		ValidatePeer: c.ValidatePeer,
		Timeout:      c.timeout,
	}
}

// Listen binds the Responder address of a validated config.
func Listen(c *Config) (net.Listener, error) {
	if c.role != ROLE_RESPONDER || c.transport == nil {
		return nil, ILLEGAL_STATE.Apply("listen as " + c.role.String())
	}
	ln, err := c.transport.Listen()
	if err != nil {
		return nil, err
	}
	if log.V(log.LV_SESSION) {
		log.Infoln("Responder is listening on", ln.Addr())
	}
	return ln, nil
}

// Serve accepts exactly one Initiator from ln and runs the exchange.
// Stale artifacts are cleared before waiting for the peer.
func Serve(c *Config, ln net.Listener, sink Sink) (res *Result, err error) {
	defer exception.Spawn(&err, "%s on %s", ROLE_RESPONDER, c.transport)
	if err = begin(sink); err != nil {
		return
	}
	conn, err := c.transport.AcceptOne(ln, c.timeout)
	if err != nil {
		return
	}
	defer SafeClose(conn)
	return NewSession(ROLE_RESPONDER, c.method, conn, sink, c.sessionOptions()).Run()
}

// Connect dials the Responder once and runs the exchange.
func Connect(c *Config, sink Sink) (*Result, error) {
	if c.role != ROLE_INITIATOR || c.transport == nil {
		return nil, ILLEGAL_STATE.Apply("connect as " + c.role.String())
	}
	return connect(c, sink)
}

func connect(c *Config, sink Sink) (res *Result, err error) {
	defer exception.Spawn(&err, "%s to %s", ROLE_INITIATOR, c.transport)
	if err = begin(sink); err != nil {
		return
	}
	conn, err := c.transport.Dial(c.timeout)
	if err != nil {
		return
	}
	defer SafeClose(conn)
	if log.V(log.LV_SESSION) {
		log.Infoln("Initiator connected to", conn.RemoteAddr())
	}
	return NewSession(ROLE_INITIATOR, c.method, conn, sink, c.sessionOptions()).Run()
}

func begin(sink Sink) error {
	if sink == nil {
		return nil
	}
	return sink.Begin()
}

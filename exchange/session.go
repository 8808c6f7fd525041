package exchange

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Lafeng/keyx/crypto"
	"github.com/Lafeng/keyx/exception"
	log "github.com/Lafeng/keyx/glog"
)

type State int

const (
	StateInit State = iota
	StateKeysGenerated
	StateLocalSent
	StateRemoteReceived
	StateSharedComputed
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"Init",
	"KeysGenerated",
	"LocalSent",
	"RemoteReceived",
	"SharedComputed",
	"Done",
	"Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sink persists the outputs of a session. Begin is called before anything
// else, WriteKeys once keys exist and WriteSessionKey only at Done.
type Sink interface {
	Begin() error
	WriteKeys(privateText, publicText string) error
	WriteSessionKey(hexDigest string) error
}

type Options struct {
	// extra check of the peer key before the shared computation
	ValidatePeer bool
	// read/write deadline per transport operation, 0 blocks
	Timeout time.Duration
	// nil means crypto/rand
	Random io.Reader
}

type Result struct {
	Role        Role
	Method      string
	PrivateText string
	PublicText  string
	SharedSize  int
	SessionKey  crypto.SessionKey
}

// Session runs one exchange over an established connection. The Responder
// sends its public key first, the Initiator receives first.
type Session struct {
	role   Role
	method *crypto.Method
	conn   net.Conn
	sink   Sink
	opts   Options
	state  State
	key    crypto.DHKE
	peer   []byte
}

func NewSession(role Role, method *crypto.Method, conn net.Conn, sink Sink, opts Options) *Session {
	return &Session{
		role:   role,
		method: method,
		conn:   conn,
		sink:   sink,
		opts:   opts,
	}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) setState(st State) {
	s.state = st
	if log.V(log.LV_HANDSHAKE) {
		log.Infof("%s state=%s\n", s.role, st)
	}
}

// Run drives the session to Done or Failed. Failures are terminal.
func (s *Session) Run() (result *Result, err error) {
	if s.state != StateInit {
		return nil, ILLEGAL_STATE.Apply(s.state)
	}
	defer func() {
		re := recover()
		if re != nil {
			s.state = StateFailed
		}
		// invariant violations pass through Catch as a panic
		if exception.Catch(re, &err) {
			result = nil
			s.state = StateFailed
			log.Warningln(s.role, "exchange failed:", err, exception.Detail(err))
		}
	}()
	if log.V(log.LV_SESSION) {
		log.Infof("%s starts %s with %s\n", s.role, s.method.Name(), s.conn.RemoteAddr())
	}
	if s.sink != nil {
		ThrowErr(s.sink.Begin())
	}

	s.generateKeys()
	if s.role == ROLE_RESPONDER {
		s.sendLocal()
		s.receiveRemote()
	} else {
		s.receiveRemote()
		s.sendLocal()
	}
	shared := s.computeShared()
	result = s.finish(shared)
	return
}

// Init -> KeysGenerated
func (s *Session) generateKeys() {
	var t0 = time.Now()
	key, err := s.method.GenerateKey(s.opts.Random)
	ThrowErr(err)
	s.key = key
	if log.V(log.LV_TIMING) {
		log.Infof("%s key generation took %s\n", s.role, time.Since(t0))
	}
	if s.sink != nil {
		ThrowErr(s.sink.WriteKeys(key.PrivateText(), key.PublicText()))
	}
	s.setState(StateKeysGenerated)
}

func (s *Session) sendLocal() {
	wire := s.key.ExportPubKey()
	setWTimeout(s.conn, s.opts.Timeout)
	n, err := s.conn.Write(wire)
	if err != nil {
		ThrowErr(TRANSPORT_ERROR.Apply(err))
	}
	ThrowIf(n != len(wire), TRANSPORT_ERROR.Apply(fmt.Sprintf("short write %d of %d", n, len(wire))))
	if log.V(log.LV_WIRE) {
		log.Infof("%s sent %d bytes\n", s.role, n)
	}
	s.setState(StateLocalSent)
}

// reads exactly the public key width, short reads are retried until the
// width is reached or the peer closes
func (s *Session) receiveRemote() {
	var size = s.method.PubKeySize()
	var buf = make([]byte, size)
	setRTimeout(s.conn, s.opts.Timeout)
	n, err := io.ReadFull(s.conn, buf)
	if err != nil {
		if IsTimeout(err) {
			ThrowErr(TRANSPORT_ERROR.Apply(err))
		}
		var reason = "read error"
		if IsClosedError(err) {
			reason = "peer closed early"
		}
		ThrowErr(PROTOCOL_FORMAT_ERROR.Apply(fmt.Sprintf("%s, expected=%d got=%d (%v)", reason, size, n, err)))
	}
	if log.V(log.LV_WIRE) {
		log.Infof("%s received %d bytes\n", s.role, n)
	}
	s.peer = buf
	s.setState(StateRemoteReceived)
}

// -> SharedComputed
func (s *Session) computeShared() []byte {
	var t0 = time.Now()
	if s.opts.ValidatePeer {
		ThrowErr(s.key.ValidatePeer(s.peer))
	}
	shared, err := s.key.ComputeShared(s.peer)
	if err != nil {
		if exception.KindOf(err) == exception.FormatError {
			err = PROTOCOL_FORMAT_ERROR.Apply(err)
		}
		ThrowErr(err)
	}
	if log.V(log.LV_TIMING) {
		log.Infof("%s key agreement took %s\n", s.role, time.Since(t0))
	}
	s.setState(StateSharedComputed)
	return shared
}

// SharedComputed -> Done
func (s *Session) finish(shared []byte) *Result {
	sessionKey := crypto.DeriveSessionKey(shared)
	if s.sink != nil {
		ThrowErr(s.sink.WriteSessionKey(sessionKey.String()))
	}
	s.setState(StateDone)
	if log.V(log.LV_KEY_FP) {
		log.Infof("%s session key fingerprint %s\n", s.role, sessionKey.Fingerprint())
	}
	return &Result{
		Role:        s.role,
		Method:      s.method.Name(),
		PrivateText: s.key.PrivateText(),
		PublicText:  s.key.PublicText(),
		SharedSize:  len(shared),
		SessionKey:  sessionKey,
	}
}

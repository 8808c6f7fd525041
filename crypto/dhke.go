package crypto

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/Lafeng/keyx/exception"
)

var (
	NO_SUCH_DH_METHOD    = exception.New(exception.ConfigurationError, 2, "No such DH method")
	PRIVATE_OUT_OF_RANGE = exception.New(exception.RangeError, 6, "Private key out of range")
	PEER_NOT_ON_CURVE    = exception.New(exception.RangeError, 6, "Peer point is not on the curve")
	DEGENERATE_SHARED    = exception.New(exception.DegenerateResultError, 5, "Shared point is at infinity")
)

// DHKE is one side of a key agreement, alive for a single exchange.
type DHKE interface {
	// wire encoding of the local public key
	ExportPubKey() []byte
	// canonical encoding of the shared value, the input of DeriveSessionKey
	ComputeShared(peerPub []byte) ([]byte, error)
	// extra check of the peer public key, not part of ComputeShared
	ValidatePeer(peerPub []byte) error
	PrivateText() string
	PublicText() string
}

// Method is the configured key agreement: one curve or one group.
type Method struct {
	name  string
	curve *Curve
	group *Group
}

// enum: DH, DH-14, DH-16, ECDH, ECDH-P-256, ECDH-secp256k1
func NewMethod(name string) (*Method, error) {
	upper := strings.ToUpper(name)
	switch {
	case upper == "ECDH":
		return newECMethodByName(CURVE_P256)
	case strings.HasPrefix(upper, "ECDH-"):
		return newECMethodByName(name[5:])
	case upper == "DH":
		return newDHMethodByID(DEFAULT_GROUP_ID)
	case strings.HasPrefix(upper, "DH-"):
		id, err := strconv.Atoi(name[3:])
		if err != nil {
			return nil, NO_SUCH_DH_METHOD.Apply(name)
		}
		return newDHMethodByID(id)
	}
	return nil, NO_SUCH_DH_METHOD.Apply(name)
}

func newECMethodByName(curveName string) (*Method, error) {
	curve, err := CurveByName(curveName)
	if err != nil {
		return nil, err
	}
	return NewECMethod(curve), nil
}

func newDHMethodByID(id int) (*Method, error) {
	group, err := GetGroup(id)
	if err != nil {
		return nil, err
	}
	return NewDHMethod(group), nil
}

func NewECMethod(curve *Curve) *Method {
	return &Method{name: "ECDH-" + curve.Name(), curve: curve}
}

func NewDHMethod(group *Group) *Method {
	name := "DH"
	if group.ID > 0 {
		name += "-" + strconv.Itoa(group.ID)
	} else {
		name += fmt.Sprintf("(%dbits)", group.P.BitLen())
	}
	return &Method{name: name, group: group}
}

func (m *Method) Name() string {
	return m.name
}

func (m *Method) IsEC() bool {
	return m.curve != nil
}

func (m *Method) Curve() *Curve {
	return m.curve
}

func (m *Method) Group() *Group {
	return m.group
}

// exact byte count of a public key on the wire
func (m *Method) PubKeySize() int {
	if m.curve != nil {
		return m.curve.CoordinateSize() << 1
	}
	return m.group.Size()
}

func (m *Method) GenerateKey(random io.Reader) (DHKE, error) {
	if m.curve != nil {
		return GenerateECKey(m.curve, random)
	}
	return GenerateDHEKey(m.group, random)
}

type ECKey struct {
	curve *Curve
	codec Codec
	priv  *big.Int // rand k
	pub   Point    // Q = G * k
	wire  []byte
}

// Q = curve.G * k
// Q => k is ECDLP
func GenerateECKey(curve *Curve, random io.Reader) (*ECKey, error) {
	k, _, err := curve.GenerateKeyPair(random)
	if err != nil {
		return nil, err
	}
	return NewECKey(curve, k)
}

// NewECKey derives the key pair of a known scalar in [1, n-1].
func NewECKey(curve *Curve, priv *big.Int) (*ECKey, error) {
	n := curve.params.N
	if priv.Sign() <= 0 || priv.Cmp(n) >= 0 {
		return nil, PRIVATE_OUT_OF_RANGE
	}
	key := &ECKey{
		curve: curve,
		codec: NewCodec(curve.params.P),
		priv:  new(big.Int).Set(priv),
		pub:   curve.ScalarBaseMul(priv),
	}
	var err error
	key.wire, err = key.codec.EncodePoint(key.pub)
	return key, err
}

func (k *ECKey) Public() Point {
	return k.pub
}

func (k *ECKey) ExportPubKey() []byte {
	return append([]byte(nil), k.wire...)
}

// K(x,y) = Q' * k = G * k' * k, only x is kept
func (k *ECKey) ComputeShared(peerPub []byte) ([]byte, error) {
	peer, err := k.codec.DecodePoint(peerPub)
	if err != nil {
		return nil, err
	}
	shared := k.curve.ScalarMul(k.priv, peer)
	if shared.IsInfinity() {
		return nil, DEGENERATE_SHARED
	}
	return k.codec.EncodeInt(shared.x)
}

func (k *ECKey) ValidatePeer(peerPub []byte) error {
	peer, err := k.codec.DecodePoint(peerPub)
	if err != nil {
		return err
	}
	if !k.curve.IsOnCurve(peer) {
		return PEER_NOT_ON_CURVE
	}
	return nil
}

func (k *ECKey) PrivateText() string {
	return k.priv.String()
}

// {"x": X, "y": Y} in decimal
func (k *ECKey) PublicText() string {
	return fmt.Sprintf(`{"x": %s, "y": %s}`, k.pub.x, k.pub.y)
}

// classical Diffie-Hellman-Merkle key exchange
type DHEKey struct {
	group *Group
	codec Codec
	priv  *big.Int
	pub   *big.Int
	wire  []byte
}

func GenerateDHEKey(group *Group, random io.Reader) (*DHEKey, error) {
	x, err := group.GeneratePrivate(random)
	if err != nil {
		return nil, err
	}
	return NewDHEKey(group, x)
}

// NewDHEKey derives the key pair of a known exponent in [2, p-2].
func NewDHEKey(group *Group, priv *big.Int) (*DHEKey, error) {
	hi := new(big.Int).Sub(group.P, big2)
	if priv.Cmp(big2) < 0 || priv.Cmp(hi) > 0 {
		return nil, PRIVATE_OUT_OF_RANGE
	}
	key := &DHEKey{
		group: group,
		codec: NewCodec(group.P),
		priv:  new(big.Int).Set(priv),
		pub:   group.ComputePublic(priv),
	}
	var err error
	key.wire, err = key.codec.EncodeInt(key.pub)
	return key, err
}

func (d *DHEKey) Public() *big.Int {
	return new(big.Int).Set(d.pub)
}

func (d *DHEKey) ExportPubKey() []byte {
	return append([]byte(nil), d.wire...)
}

// shared value as lowercase hex text without prefix or padding
func (d *DHEKey) ComputeShared(peerPub []byte) ([]byte, error) {
	peer, err := d.codec.DecodeInt(peerPub)
	if err != nil {
		return nil, err
	}
	shared, err := d.group.ComputeShared(peer, d.priv)
	if err != nil {
		return nil, err
	}
	return []byte(shared.Text(16)), nil
}

func (d *DHEKey) ValidatePeer(peerPub []byte) error {
	peer, err := d.codec.DecodeInt(peerPub)
	if err != nil {
		return err
	}
	return d.group.ValidatePublic(peer)
}

func (d *DHEKey) PrivateText() string {
	return d.priv.String()
}

func (d *DHEKey) PublicText() string {
	return d.pub.String()
}

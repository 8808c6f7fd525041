package crypto

import (
	"io"
	"math/big"

	"github.com/Lafeng/keyx/exception"
)

var (
	NO_SUCH_GROUP        = exception.New(exception.ConfigurationError, 2, "No such DH group")
	INVALID_GROUP_PARAMS = exception.New(exception.ConfigurationError, 2, "Invalid DH group parameters:")
	PEER_OUT_OF_RANGE    = exception.New(exception.RangeError, 6, "Peer public value out of range")
)

const (
	DEFAULT_GROUP_ID = 16 // 4096bits
)

// RFC 3526 MODP primes, generator 2
const (
	modp2048 = "" +
		"ffffffffffffffffc90fdaa22168c234c4c6628b80dc1cd129024e088a67cc74" +
		"020bbea63b139b22514a08798e3404ddef9519b3cd3a431b302b0a6df25f1437" +
		"4fe1356d6d51c245e485b576625e7ec6f44c42e9a637ed6b0bff5cb6f406b7ed" +
		"ee386bfb5a899fa5ae9f24117c4b1fe649286651ece45b3dc2007cb8a163bf05" +
		"98da48361c55d39a69163fa8fd24cf5f83655d23dca3ad961c62f356208552bb" +
		"9ed529077096966d670c354e4abc9804f1746c08ca18217c32905e462e36ce3b" +
		"e39e772c180e86039b2783a2ec07a28fb5c55df06f4c52c9de2bcbf695581718" +
		"3995497cea956ae515d2261898fa051015728e5a8aacaa68ffffffffffffffff" +
		""

	modp4096 = "" +
		"ffffffffffffffffc90fdaa22168c234c4c6628b80dc1cd129024e088a67cc74" +
		"020bbea63b139b22514a08798e3404ddef9519b3cd3a431b302b0a6df25f1437" +
		"4fe1356d6d51c245e485b576625e7ec6f44c42e9a637ed6b0bff5cb6f406b7ed" +
		"ee386bfb5a899fa5ae9f24117c4b1fe649286651ece45b3dc2007cb8a163bf05" +
		"98da48361c55d39a69163fa8fd24cf5f83655d23dca3ad961c62f356208552bb" +
		"9ed529077096966d670c354e4abc9804f1746c08ca18217c32905e462e36ce3b" +
		"e39e772c180e86039b2783a2ec07a28fb5c55df06f4c52c9de2bcbf695581718" +
		"3995497cea956ae515d2261898fa051015728e5a8aaac42dad33170d04507a33" +
		"a85521abdf1cba64ecfb850458dbef0a8aea71575d060c7db3970f85a6e1e4c7" +
		"abf5ae8cdb0933d71e8c94e04a25619dcee3d2261ad2ee6bf12ffa06d98a0864" +
		"d87602733ec86a64521f2b18177b200cbbe117577a615d6c770988c0bad946e2" +
		"08e24fa074e5ab3143db5bfce0fd108e4b82d120a92108011a723c12a787e6d7" +
		"88719a10bdba5b2699c327186af4e23c1a946834b6150bda2583e9ca2ad44ce8" +
		"dbbbc2db04de8ef92e8efc141fbecaa6287c59474e6bc05d99b2964fa090c3a2" +
		"233ba186515be7ed1f612970cee2d7afb81bdd762170481cd0069127d5b05aa9" +
		"93b4ea988d8fddc186ffb7dc90a6c08f4df435c934063199ffffffffffffffff" +
		""
)

// Group is the multiplicative group of integers modulo a prime P with
// generator G.
type Group struct {
	ID    int
	P     *big.Int
	G     *big.Int
	field *Modulus
}

// enum: 14, 16
func GetGroup(id int) (*Group, error) {
	var p *big.Int
	switch id {
	case 14:
		p = hexInt(modp2048)
	case 16:
		p = hexInt(modp4096)
	default:
		return nil, NO_SUCH_GROUP.Apply(id)
	}
	return newGroup(id, p, big2), nil
}

// CreateGroup builds a group from caller supplied parameters.
// The RFC groups from GetGroup skip the primality test.
func CreateGroup(p, g *big.Int) (*Group, error) {
	if p.Cmp(big.NewInt(5)) < 0 || !p.ProbablyPrime(20) {
		return nil, INVALID_GROUP_PARAMS.Apply("p is not a prime > 3")
	}
	if g.Cmp(big1) <= 0 || g.Cmp(p) >= 0 {
		return nil, INVALID_GROUP_PARAMS.Apply("g out of (1, p)")
	}
	return newGroup(0, p, g), nil
}

func newGroup(id int, p, g *big.Int) *Group {
	return &Group{
		ID:    id,
		P:     new(big.Int).Set(p),
		G:     new(big.Int).Set(g),
		field: NewModulus(p),
	}
}

// byte width of one element on the wire
func (g *Group) Size() int {
	return (g.P.BitLen() + 7) >> 3
}

// GeneratePrivate draws uniformly from [2, p-2].
func (g *Group) GeneratePrivate(random io.Reader) (*big.Int, error) {
	hi := new(big.Int).Sub(g.P, big2)
	return RandomInRange(random, big2, hi)
}

// g^priv mod p
func (g *Group) ComputePublic(priv *big.Int) *big.Int {
	return g.field.Exp(g.G, priv)
}

// peer^priv mod p; the peer value must lie in [0, p-1] before use.
func (g *Group) ComputeShared(peer, priv *big.Int) (*big.Int, error) {
	if peer.Sign() < 0 || peer.Cmp(g.P) >= 0 {
		return nil, PEER_OUT_OF_RANGE.Apply("not in [0, p-1]")
	}
	return g.field.Exp(peer, priv), nil
}

// ValidatePublic is the stricter check [2, p-2], which excludes the
// trivial elements 0, 1 and p-1.
func (g *Group) ValidatePublic(peer *big.Int) error {
	hi := new(big.Int).Sub(g.P, big2)
	if peer.Cmp(big2) < 0 || peer.Cmp(hi) > 0 {
		return PEER_OUT_OF_RANGE.Apply("not in [2, p-2]")
	}
	return nil
}

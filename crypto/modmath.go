package crypto

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/Lafeng/keyx/exception"
)

var (
	INVERSE_OF_ZERO   = exception.New(exception.ArithmeticInvariantViolation, 70, "Modular inverse of zero")
	NOT_INVERTIBLE    = exception.New(exception.ArithmeticInvariantViolation, 70, "Modular inverse does not exist")
	NEGATIVE_EXPONENT = exception.New(exception.ArithmeticInvariantViolation, 70, "Negative exponent")
	EMPTY_RANGE       = exception.New(exception.ArithmeticInvariantViolation, 70, "Empty sampling range")
)

var (
	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
	big3 = big.NewInt(3)
)

// Modulus is the ring of integers modulo p.
// Every result is a fresh value reduced into [0, p); operands may be
// any integer, including negative ones.
type Modulus struct {
	p *big.Int
}

func NewModulus(p *big.Int) *Modulus {
	return &Modulus{p: new(big.Int).Set(p)}
}

func (m *Modulus) P() *big.Int {
	return new(big.Int).Set(m.p)
}

// Mod is Euclidean in math/big, so the result is never negative.
func (m *Modulus) Reduce(a *big.Int) *big.Int {
	return new(big.Int).Mod(a, m.p)
}

func (m *Modulus) Equal(a, b *big.Int) bool {
	return m.Reduce(a).Cmp(m.Reduce(b)) == 0
}

func (m *Modulus) Add(a, b *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, m.p)
}

func (m *Modulus) Sub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, m.p)
}

func (m *Modulus) Mul(a, b *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, m.p)
}

func (m *Modulus) Neg(a *big.Int) *big.Int {
	r := new(big.Int).Neg(a)
	return r.Mod(r, m.p)
}

// base^e mod p, e >= 0
func (m *Modulus) Exp(base, e *big.Int) *big.Int {
	if e.Sign() < 0 {
		panic(NEGATIVE_EXPONENT.Apply(e))
	}
	return new(big.Int).Exp(m.Reduce(base), e, m.p)
}

// Inverse uses the extended Euclidean algorithm.
// A zero or non-coprime operand means the caller broke an invariant, so
// it panics instead of returning a value that would silently be wrong.
func (m *Modulus) Inverse(a *big.Int) *big.Int {
	r := m.Reduce(a)
	if r.Sign() == 0 {
		panic(INVERSE_OF_ZERO)
	}
	if r.ModInverse(r, m.p) == nil {
		panic(NOT_INVERTIBLE.Apply(a))
	}
	return r
}

// RandomInRange draws uniformly from [lo, hi] by rejection sampling over
// the minimal number of bits covering hi-lo, so there is no modulo bias.
func RandomInRange(random io.Reader, lo, hi *big.Int) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}
	span := new(big.Int).Sub(hi, lo)
	if span.Sign() < 0 {
		panic(EMPTY_RANGE.Apply(lo.String() + ".." + hi.String()))
	}
	bitLen := span.BitLen()
	if bitLen == 0 {
		return new(big.Int).Set(lo), nil
	}
	buf := make([]byte, (bitLen+7)/8)
	// clear the excess high bits of the first byte
	mask := byte(0xff >> uint(len(buf)*8-bitLen))
	r := new(big.Int)
	for {
		if _, err := io.ReadFull(random, buf); err != nil {
			return nil, err
		}
		buf[0] &= mask
		r.SetBytes(buf)
		if r.Cmp(span) <= 0 {
			return r.Add(r, lo), nil
		}
	}
}

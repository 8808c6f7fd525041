package crypto

import (
	"fmt"
	"io"
	"math/big"

	"github.com/Lafeng/keyx/exception"
)

var (
	INVALID_CURVE_PARAMS = exception.New(exception.ConfigurationError, 2, "Invalid curve parameters:")
)

// CurveParams describes y² = x³ + a·x + b over GF(p) with a base point G
// of order N and cofactor H.
type CurveParams struct {
	Name   string
	P      *big.Int
	A      *big.Int
	B      *big.Int
	Gx, Gy *big.Int
	N      *big.Int
	H      *big.Int
}

func (cp *CurveParams) clone() *CurveParams {
	return &CurveParams{
		Name: cp.Name,
		P:    new(big.Int).Set(cp.P),
		A:    new(big.Int).Set(cp.A),
		B:    new(big.Int).Set(cp.B),
		Gx:   new(big.Int).Set(cp.Gx),
		Gy:   new(big.Int).Set(cp.Gy),
		N:    new(big.Int).Set(cp.N),
		H:    new(big.Int).Set(cp.H),
	}
}

// Point is either an affine point or the point at infinity.
// The zero value is the point at infinity.
type Point struct {
	x, y   *big.Int
	affine bool
}

var Infinity = Point{}

func Affine(x, y *big.Int) Point {
	return Point{
		x:      new(big.Int).Set(x),
		y:      new(big.Int).Set(y),
		affine: true,
	}
}

func (p Point) IsInfinity() bool {
	return !p.affine
}

// X returns a copy of the x-coordinate, nil for infinity.
func (p Point) X() *big.Int {
	if !p.affine {
		return nil
	}
	return new(big.Int).Set(p.x)
}

func (p Point) Y() *big.Int {
	if !p.affine {
		return nil
	}
	return new(big.Int).Set(p.y)
}

func (p Point) Equal(q Point) bool {
	if !p.affine || !q.affine {
		return p.affine == q.affine
	}
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

func (p Point) String() string {
	if !p.affine {
		return "Infinity"
	}
	return fmt.Sprintf("(%s, %s)", p.x, p.y)
}

// Curve is the point group of one set of validated parameters.
// It holds no mutable state and is safe to share.
type Curve struct {
	params *CurveParams
	field  *Modulus
	g      Point
}

// NewCurve validates params: p prime, non-singular curve, G on the curve
// and N·G = Infinity.
func NewCurve(params *CurveParams) (*Curve, error) {
	cp := params.clone()
	if cp.P.Cmp(big3) <= 0 || !cp.P.ProbablyPrime(20) {
		return nil, INVALID_CURVE_PARAMS.Apply("p is not an odd prime")
	}
	if cp.N.Cmp(big1) <= 0 || cp.H.Sign() <= 0 {
		return nil, INVALID_CURVE_PARAMS.Apply("order/cofactor")
	}
	c := &Curve{
		params: cp,
		field:  NewModulus(cp.P),
	}
	f := c.field
	// 4a³ + 27b² != 0
	disc := f.Add(f.Mul(big.NewInt(4), f.Exp(cp.A, big3)), f.Mul(big.NewInt(27), f.Mul(cp.B, cp.B)))
	if disc.Sign() == 0 {
		return nil, INVALID_CURVE_PARAMS.Apply("singular curve")
	}
	c.g = Affine(cp.Gx, cp.Gy)
	if !c.IsOnCurve(c.g) {
		return nil, INVALID_CURVE_PARAMS.Apply("generator is not on the curve")
	}
	if !c.ScalarMul(cp.N, c.g).IsInfinity() {
		return nil, INVALID_CURVE_PARAMS.Apply("n is not the order of G")
	}
	return c, nil
}

func (c *Curve) Params() *CurveParams {
	return c.params.clone()
}

func (c *Curve) Name() string {
	return c.params.Name
}

func (c *Curve) Generator() Point {
	return c.g
}

// IsOnCurve checks y² ≡ x³ + a·x + b (mod p) with coordinates in [0, p).
func (c *Curve) IsOnCurve(p Point) bool {
	if p.IsInfinity() {
		return true
	}
	if p.x.Sign() < 0 || p.x.Cmp(c.params.P) >= 0 ||
		p.y.Sign() < 0 || p.y.Cmp(c.params.P) >= 0 {
		return false
	}
	f := c.field
	lhs := f.Mul(p.y, p.y)
	rhs := f.Add(f.Add(f.Exp(p.x, big3), f.Mul(c.params.A, p.x)), c.params.B)
	return lhs.Cmp(rhs) == 0
}

// (x, y) -> (x, -y mod p)
func (c *Curve) Negate(p Point) Point {
	if p.IsInfinity() {
		return p
	}
	return Point{x: c.field.Reduce(p.x), y: c.field.Neg(p.y), affine: true}
}

// coordinates reduced into [0, p)
func (c *Curve) canonical(p Point) Point {
	if p.IsInfinity() {
		return p
	}
	return Point{x: c.field.Reduce(p.x), y: c.field.Reduce(p.y), affine: true}
}

func (c *Curve) Add(p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	f := c.field
	sameX := f.Equal(p.x, q.x)
	// inverses, including a doubled point with y = 0
	if sameX && f.Add(p.y, q.y).Sign() == 0 {
		return Infinity
	}

	var lambda *big.Int
	if sameX && f.Equal(p.y, q.y) {
		if f.Reduce(p.y).Sign() == 0 {
			return Infinity
		}
		// tangent: (3x² + a) / 2y
		num := f.Add(f.Mul(big3, f.Mul(p.x, p.x)), c.params.A)
		lambda = f.Mul(num, f.Inverse(f.Mul(big2, p.y)))
	} else {
		// chord: (yq - yp) / (xq - xp)
		lambda = f.Mul(f.Sub(q.y, p.y), f.Inverse(f.Sub(q.x, p.x)))
	}

	xr := f.Sub(f.Sub(f.Mul(lambda, lambda), p.x), q.x)
	yr := f.Sub(f.Mul(lambda, f.Sub(p.x, xr)), p.y)
	return Point{x: xr, y: yr, affine: true}
}

func (c *Curve) Double(p Point) Point {
	return c.Add(p, p)
}

// ScalarMul computes k·P by double-and-add over the bits of |k|,
// least significant first. A negative k multiplies -P by |k|.
func (c *Curve) ScalarMul(k *big.Int, p Point) Point {
	if k.Sign() == 0 || p.IsInfinity() {
		return Infinity
	}
	e := new(big.Int).Set(k)
	if e.Sign() < 0 {
		p = c.Negate(p)
		e.Neg(e)
	}
	var (
		result = Infinity
		temp   = c.canonical(p)
		n      = e.BitLen()
	)
	for i := 0; i < n; i++ {
		if e.Bit(i) == 1 {
			result = c.Add(result, temp)
		}
		if i+1 < n {
			temp = c.Add(temp, temp)
		}
	}
	return result
}

func (c *Curve) ScalarBaseMul(k *big.Int) Point {
	return c.ScalarMul(k, c.g)
}

// GenerateKeyPair draws the private scalar uniformly from [1, n-1].
func (c *Curve) GenerateKeyPair(random io.Reader) (priv *big.Int, pub Point, err error) {
	hi := new(big.Int).Sub(c.params.N, big1)
	priv, err = RandomInRange(random, big1, hi)
	if err != nil {
		return nil, Infinity, err
	}
	return priv, c.ScalarBaseMul(priv), nil
}

// byte width of one coordinate on the wire
func (c *Curve) CoordinateSize() int {
	return (c.params.P.BitLen() + 7) >> 3
}

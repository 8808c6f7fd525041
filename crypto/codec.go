package crypto

import (
	"fmt"
	"math/big"

	"github.com/Lafeng/keyx/exception"
)

var (
	INVALID_ENCODING_LENGTH = exception.New(exception.FormatError, 4, "Invalid encoding length")
	VALUE_TOO_WIDE          = exception.New(exception.FormatError, 4, "Value does not fit the encoding width")
	INFINITY_NOT_ENCODABLE  = exception.New(exception.FormatError, 4, "Point at infinity has no encoding")
)

// Codec is the fixed-width big-endian wire encoding for one modulus:
// an integer takes ceil(bitlen(p)/8) bytes, a point is x||y.
// There are no length prefixes; decoders accept the exact width only.
type Codec struct {
	width int
}

func NewCodec(modulus *big.Int) Codec {
	return Codec{width: (modulus.BitLen() + 7) >> 3}
}

func (c Codec) IntSize() int {
	return c.width
}

func (c Codec) PointSize() int {
	return c.width << 1
}

func (c Codec) EncodeInt(v *big.Int) ([]byte, error) {
	buf := make([]byte, c.width)
	if err := c.putInt(buf, v); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c Codec) putInt(dst []byte, v *big.Int) error {
	if v.Sign() < 0 || v.BitLen() > len(dst)<<3 {
		return VALUE_TOO_WIDE.Apply(v.BitLen())
	}
	v.FillBytes(dst)
	return nil
}

func (c Codec) DecodeInt(b []byte) (*big.Int, error) {
	if len(b) != c.width {
		return nil, INVALID_ENCODING_LENGTH.Apply(lengthDetail(c.width, len(b)))
	}
	return new(big.Int).SetBytes(b), nil
}

func (c Codec) EncodePoint(p Point) ([]byte, error) {
	if p.IsInfinity() {
		return nil, INFINITY_NOT_ENCODABLE
	}
	buf := make([]byte, c.PointSize())
	if err := c.putInt(buf[:c.width], p.x); err != nil {
		return nil, err
	}
	if err := c.putInt(buf[c.width:], p.y); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodePoint does not check the curve equation.
func (c Codec) DecodePoint(b []byte) (Point, error) {
	if len(b) != c.PointSize() {
		return Infinity, INVALID_ENCODING_LENGTH.Apply(lengthDetail(c.PointSize(), len(b)))
	}
	x := new(big.Int).SetBytes(b[:c.width])
	y := new(big.Int).SetBytes(b[c.width:])
	return Point{x: x, y: y, affine: true}, nil
}

func lengthDetail(want, got int) string {
	return fmt.Sprintf("expected=%d got=%d", want, got)
}

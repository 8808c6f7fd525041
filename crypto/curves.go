package crypto

import (
	"math/big"
	"strings"

	"github.com/Lafeng/keyx/exception"
)

var (
	NO_SUCH_CURVE = exception.New(exception.ConfigurationError, 2, "No such curve")
)

const (
	CURVE_P256      = "P-256"
	CURVE_SECP256K1 = "secp256k1"
)

func hexInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bad hex constant " + s)
	}
	return n
}

// secp256r1, SEC 2 v2 §2.4.2
func p256Params() *CurveParams {
	return &CurveParams{
		Name: CURVE_P256,
		P:    hexInt("ffffffff00000001000000000000000000000000ffffffffffffffffffffffff"),
		A:    hexInt("ffffffff00000001000000000000000000000000fffffffffffffffffffffffc"),
		B:    hexInt("5ac635d8aa3a93e7b3ebbd55769886bc651d06b0cc53b0f63bce3c3e27d2604b"),
		Gx:   hexInt("6b17d1f2e12c4247f8bce6e563a440f277037d812deb33a0f4a13945d898c296"),
		Gy:   hexInt("4fe342e2fe1a7f9b8ee7eb4a7c0f9e162bce33576b315ececbb6406837bf51f5"),
		N:    hexInt("ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551"),
		H:    big.NewInt(1),
	}
}

// SEC 2 v2 §2.4.1
func secp256k1Params() *CurveParams {
	return &CurveParams{
		Name: CURVE_SECP256K1,
		P:    hexInt("fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f"),
		A:    big.NewInt(0),
		B:    big.NewInt(7),
		Gx:   hexInt("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"),
		Gy:   hexInt("483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"),
		N:    hexInt("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"),
		H:    big.NewInt(1),
	}
}

// enum: P-256 (alias P256, secp256r1, prime256v1), secp256k1
func ParamsByName(name string) (*CurveParams, error) {
	switch strings.ToLower(name) {
	case "p-256", "p256", "secp256r1", "prime256v1":
		return p256Params(), nil
	case "secp256k1", "k256":
		return secp256k1Params(), nil
	}
	return nil, NO_SUCH_CURVE.Apply(name)
}

func CurveByName(name string) (*Curve, error) {
	params, err := ParamsByName(name)
	if err != nil {
		return nil, err
	}
	return NewCurve(params)
}

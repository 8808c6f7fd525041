package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lafeng/keyx/exception"
)

func TestNewMethod(t *testing.T) {
	var cases = []struct {
		name    string
		ec      bool
		label   string
		pubSize int
	}{
		{"ECDH", true, "ECDH-P-256", 64},
		{"ecdh-secp256k1", true, "ECDH-secp256k1", 64},
		{"ECDH-P256", true, "ECDH-P-256", 64},
		{"DH", false, "DH-16", 512},
		{"DH-14", false, "DH-14", 256},
	}
	for _, c := range cases {
		m, err := NewMethod(c.name)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.ec, m.IsEC(), c.name)
		assert.Equal(t, c.label, m.Name())
		assert.Equal(t, c.pubSize, m.PubKeySize(), c.name)
	}
	for _, bad := range []string{"RSA", "DH-x", "DH-3", "ECDH-ed25519", ""} {
		_, err := NewMethod(bad)
		require.Error(t, err, bad)
		assert.Equal(t, exception.ConfigurationError, exception.KindOf(err), bad)
		assert.Equal(t, 2, exception.ExitCode(err))
	}
	assert.Equal(t, "DH(5bits)", NewDHMethod(toyGroup(t)).Name())
}

func TestMethodAgreement(t *testing.T) {
	for _, name := range []string{"ECDH-P-256", "ECDH-secp256k1", "DH-14"} {
		m, err := NewMethod(name)
		require.NoError(t, err)
		a, err := m.GenerateKey(nil)
		require.NoError(t, err)
		b, err := m.GenerateKey(nil)
		require.NoError(t, err)
		require.Len(t, a.ExportPubKey(), m.PubKeySize())

		k1, err := a.ComputeShared(b.ExportPubKey())
		require.NoError(t, err)
		k2, err := b.ComputeShared(a.ExportPubKey())
		require.NoError(t, err)
		assert.Equal(t, k1, k2, name)
		assert.Equal(t, DeriveSessionKey(k1), DeriveSessionKey(k2))
		assert.NoError(t, a.ValidatePeer(b.ExportPubKey()))
	}
}

func TestToyECKeys(t *testing.T) {
	c := toyCurve(t)
	alice, err := NewECKey(c, big.NewInt(3))
	require.NoError(t, err)
	bob, err := NewECKey(c, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 6}, alice.ExportPubKey())
	assert.Equal(t, []byte{0, 6}, bob.ExportPubKey())
	assert.Equal(t, `{"x": 10, "y": 6}`, alice.PublicText())
	assert.Equal(t, "7", bob.PrivateText())

	// 21·G = 2·G = (6, 3)
	k1, err := alice.ComputeShared(bob.ExportPubKey())
	require.NoError(t, err)
	k2, err := bob.ComputeShared(alice.ExportPubKey())
	require.NoError(t, err)
	assert.Equal(t, []byte{6}, k1)
	assert.Equal(t, k1, k2)

	for _, k := range []int64{0, -1, 19, 20} {
		_, err = NewECKey(c, big.NewInt(k))
		assert.ErrorIs(t, err, PRIVATE_OUT_OF_RANGE, "k=%d", k)
	}
}

func TestDegenerateShared(t *testing.T) {
	c, err := CurveByName(CURVE_P256)
	require.NoError(t, err)
	key, err := NewECKey(c, big2)
	require.NoError(t, err)
	// (0, 0) has y = 0, so any even multiple is the point at infinity
	_, err = key.ComputeShared(make([]byte, 64))
	assert.ErrorIs(t, err, DEGENERATE_SHARED)
	assert.Equal(t, exception.DegenerateResultError, exception.KindOf(err))
	assert.Equal(t, 5, exception.ExitCode(err))
}

func TestValidatePeer(t *testing.T) {
	c := toyCurve(t)
	key, err := NewECKey(c, big.NewInt(3))
	require.NoError(t, err)
	assert.NoError(t, key.ValidatePeer([]byte{5, 1}))
	assert.ErrorIs(t, key.ValidatePeer([]byte{5, 2}), PEER_NOT_ON_CURVE)
	assert.ErrorIs(t, key.ValidatePeer([]byte{5, 18}), PEER_NOT_ON_CURVE)
	assert.ErrorIs(t, key.ValidatePeer([]byte{5}), INVALID_ENCODING_LENGTH)
	// without validation an off-curve point is still multiplied
	_, err = key.ComputeShared([]byte{5, 2})
	assert.NoError(t, err)

	dk, err := NewDHEKey(toyGroup(t), big.NewInt(6))
	require.NoError(t, err)
	assert.ErrorIs(t, dk.ValidatePeer([]byte{1}), PEER_OUT_OF_RANGE)
	assert.ErrorIs(t, dk.ValidatePeer([]byte{22}), PEER_OUT_OF_RANGE)
	assert.NoError(t, dk.ValidatePeer([]byte{19}))
}

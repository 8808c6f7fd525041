package crypto

import (
	"crypto/sha256"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSessionKey(t *testing.T) {
	key := DeriveSessionKey([]byte("2"))
	sum := sha256.Sum256([]byte("2"))
	assert.Equal(t, sum[:], []byte(key))
	assert.Equal(t, "d4735e3a265e16eee03f59718b9b5d03019c07d8b6c51f90da3a666eec13ab35", key.String())
}

func TestFingerprint(t *testing.T) {
	a := DeriveSessionKey([]byte("a"))
	b := DeriveSessionKey([]byte("b"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{4}(:[0-9a-f]{4}){3}$`), a.Fingerprint())
	assert.Equal(t, a.Fingerprint(), DeriveSessionKey([]byte("a")).Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.NotContains(t, a.String(), a.Fingerprint())
}

package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/dchest/siphash"
)

// fixed SipHash keys, fingerprints are for log correlation only
const (
	fpKey0 uint64 = 0x6b65797866707630
	fpKey1 uint64 = 0x73657373696f6e6b
)

// SessionKey is the SHA-256 digest of the canonical shared value.
type SessionKey []byte

func DeriveSessionKey(shared []byte) SessionKey {
	sha := sha256.New()
	sha.Write(shared)
	return sha.Sum(nil)
}

// lowercase hex digest
func (k SessionKey) String() string {
	return hex.EncodeToString(k)
}

// Fingerprint identifies a key in logs without revealing it.
func (k SessionKey) Fingerprint() string {
	h := siphash.Hash(fpKey0, fpKey1, k)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return fmt.Sprintf("%x:%x:%x:%x", buf[0:2], buf[2:4], buf[4:6], buf[6:8])
}

package id

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewDisplayID returns a human-readable identifier like "LA-2026-483920":
// prefix, current year, six random digits. Uniqueness is enforced by the
// database index, not here.
func NewDisplayID(prefix string) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	n := binary.BigEndian.Uint32(b[:]) % 1_000_000
	return fmt.Sprintf("%s-%d-%06d", prefix, time.Now().UTC().Year(), n)
}

// internal/daily/daily.go
//
// Deterministic daily deck.
// Every player gets the same card layout for a given UTC date: the deck
// shuffle is seeded from HMAC-SHA256(salt, YYYY-MM-DD).

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the shuffle seed for the date key.
func Seed(dateKey, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(dateKey))
	sum := h.Sum(nil)
	// first 8 bytes are plenty of entropy for a PCG seed
	return binary.BigEndian.Uint64(sum[:8])
}

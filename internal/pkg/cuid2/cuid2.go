// Package cuid2 generates prefixed, time-sortable identifiers such as the
// run ids attached to every optimization run.
package cuid2

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// RunPrefix prefixes optimization run ids.
const RunPrefix = "opt"

const (
	timestampLength     = 6
	sortableRandomLen   = 18
	unsortableRandomLen = 24
)

// EncodeTimestamp encodes Unix seconds as a fixed-width 6-character base62
// string, so lexicographic order follows time order.
func EncodeTimestamp(seconds int64) string {
	out := make([]byte, timestampLength)
	for i := timestampLength - 1; i >= 0; i-- {
		out[i] = base62Alphabet[seconds%62]
		seconds /= 62
	}
	return string(out)
}

// randomBase62 returns length uniformly distributed base62 characters.
// Bytes are masked to 6 bits and values >= 62 are rejected.
func randomBase62(length int) string {
	var b strings.Builder
	b.Grow(length)
	buf := make([]byte, length+length/8+4)
	for b.Len() < length {
		if _, err := crypto_rand.Read(buf); err != nil {
			panic("cuid2: failed to read random bytes: " + err.Error())
		}
		for _, v := range buf {
			v &= 0x3f
			if v < 62 {
				b.WriteByte(base62Alphabet[v])
				if b.Len() == length {
					break
				}
			}
		}
	}
	return b.String()
}

// PrefixedIdOptions for generating prefixed IDs.
type PrefixedIdOptions struct {
	// Untimed drops the 6-char timestamp; ids are then purely random.
	Untimed bool
	// RandomLength of random portion (default: 18 when timed, 24 otherwise).
	RandomLength int
}

// GeneratePrefixedId generates "<prefix>_<timestamp><random>".
//
//	GeneratePrefixedId("opt", PrefixedIdOptions{})              // "opt_1rK5iqaB3cD5eF7gH9iJ1k"
//	GeneratePrefixedId("opt", PrefixedIdOptions{Untimed: true}) // "opt_8kJ2mN4pQ6rS0tU3vW5xY7zA"
func GeneratePrefixedId(prefix string, options PrefixedIdOptions) string {
	n := options.RandomLength
	if options.Untimed {
		if n <= 0 {
			n = unsortableRandomLen
		}
		return prefix + "_" + randomBase62(n)
	}
	if n <= 0 {
		n = sortableRandomLen
	}
	return prefix + "_" + EncodeTimestamp(time.Now().Unix()) + randomBase62(n)
}

// RunID returns a new time-sortable optimization run id.
func RunID() string {
	return GeneratePrefixedId(RunPrefix, PrefixedIdOptions{})
}

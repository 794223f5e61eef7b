// Package token computes the HMAC-SHA-256 signature embedded in signed render URLs.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Length is the size of a rendered token: 32 digest bytes as lowercase hex.
const Length = 2 * sha256.Size

// scratchSize bounds secrets copied into a local array instead of the heap.
const scratchSize = 256

// Sign returns the lowercase hex HMAC-SHA-256 of message keyed by the UTF-8
// bytes of secret.
func Sign(message []byte, secret string) string {
	var out [Length]byte
	sum(&out, message, secret)
	return string(out[:])
}

// SignString is Sign for a message held as a string.
func SignString(message, secret string) string {
	var scratch [scratchSize]byte
	return Sign(bytesOf(scratch[:], message), secret)
}

// Verify reports whether tok is the signature of message under secret.
// The comparison runs in constant time.
func Verify(message []byte, secret, tok string) bool {
	if len(tok) != Length {
		return false
	}
	var expected [Length]byte
	sum(&expected, message, secret)
	var scratch [Length]byte
	return subtle.ConstantTimeCompare(expected[:], bytesOf(scratch[:], tok)) == 1
}

func sum(out *[Length]byte, message []byte, secret string) {
	var scratch [scratchSize]byte
	mac := hmac.New(sha256.New, bytesOf(scratch[:], secret))
	mac.Write(message)

	var digest [sha256.Size]byte
	hex.Encode(out[:], mac.Sum(digest[:0]))
}

// bytesOf copies s into scratch when it fits, otherwise into a new slice.
func bytesOf(scratch []byte, s string) []byte {
	if len(s) <= len(scratch) {
		return scratch[:copy(scratch, s)]
	}
	return []byte(s)
}

// Package querystring writes canonical, percent-encoded query strings into a
// buffer.Buffer and parses them back.
//
// Fields are joined with '&'. Bytes outside the safe set are written as %XX
// with uppercase hex digits over their UTF-8 form. Each field reserves its
// worst-case length once, then writes without further capacity checks.
package querystring

import (
	"unicode/utf8"

	"go-htmlcsstoimage/buffer"
)

// safeChars is the set the rendering service leaves unescaped.
const safeChars = "!()*-.0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

const upperHex = "0123456789ABCDEF"

var safe [256]bool

func init() {
	for i := 0; i < len(safeChars); i++ {
		safe[safeChars[i]] = true
	}
}

// text is anything the encoder can read byte by byte.
type text interface {
	~string | ~[]byte
}

// IsSafe reports whether c is written verbatim.
func IsSafe(c byte) bool { return safe[c] }

// firstUnsafe returns the index of the first byte needing encoding, or -1.
func firstUnsafe[T text](s T) int {
	for i := 0; i < len(s); i++ {
		if !safe[s[i]] {
			return i
		}
	}
	return -1
}

// EncodedLen returns an upper bound on the encoded length of s and whether s
// needs encoding at all. Safe bytes cost one, every other byte three, so a
// four-byte rune costs twelve. The bound is exact for valid UTF-8.
func EncodedLen[T text](s T) (int, bool) {
	i := firstUnsafe(s)
	if i < 0 {
		return len(s), false
	}
	n := i
	for ; i < len(s); i++ {
		if safe[s[i]] {
			n++
		} else {
			n += 3
		}
	}
	return n, true
}

// encodeInto writes the encoded form of s into dst and returns the number of
// bytes written. dst must hold EncodedLen(s) bytes. Bytes that do not start a
// valid UTF-8 sequence are dropped one at a time.
func encodeInto[T text](dst []byte, s T) int {
	w := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if safe[c] {
				dst[w] = c
				w++
			} else {
				w += escapeByte(dst[w:], c)
			}
			i++
			continue
		}

		size := runeSize(s, i)
		if size == 0 {
			i++
			continue
		}
		for j := i; j < i+size; j++ {
			w += escapeByte(dst[w:], s[j])
		}
		i += size
	}
	return w
}

// runeSize returns the length of the valid UTF-8 sequence starting at s[i],
// or 0 if the bytes there are not valid UTF-8.
func runeSize[T text](s T, i int) int {
	var seq [utf8.UTFMax]byte
	n := 0
	for j := i; j < len(s) && n < len(seq); j++ {
		seq[n] = s[j]
		n++
	}
	r, size := utf8.DecodeRune(seq[:n])
	if r == utf8.RuneError && size <= 1 {
		return 0
	}
	return size
}

func escapeByte(dst []byte, c byte) int {
	dst[0] = '%'
	dst[1] = upperHex[c>>4]
	dst[2] = upperHex[c&0xF]
	return 3
}

// writeText copies s verbatim or encodes it.
func writeText[T text](dst []byte, s T, encode bool) int {
	if !encode {
		return copy(dst, s)
	}
	return encodeInto(dst, s)
}

// separatorLen is 1 when a field has already been written.
func separatorLen(b *buffer.Buffer) int {
	if b.Len() > 0 {
		return 1
	}
	return 0
}

// writeField reserves keyLen+valueLen plus '=' and an optional '&', then writes.
func writeField[V text](b *buffer.Buffer, key string, keyEncode bool, keyLen int, value V, valueEncode bool, valueLen int) {
	sep := separatorLen(b)
	b.EnsureCapacity(sep + keyLen + 1 + valueLen)

	dst := b.Free()
	w := 0
	if sep == 1 {
		dst[w] = '&'
		w++
	}
	w += writeText(dst[w:], key, keyEncode)
	dst[w] = '='
	w++
	w += writeText(dst[w:], value, valueEncode)
	b.Advance(w)
}

// Encode writes key=value, scanning both for bytes that need encoding.
func Encode[V text](b *buffer.Buffer, key string, value V) {
	keyLen, keyEncode := EncodedLen(key)
	valueLen, valueEncode := EncodedLen(value)
	writeField(b, key, keyEncode, keyLen, value, valueEncode, valueLen)
}

// EncodeSafeKey writes key=value where key is a literal made of safe bytes.
func EncodeSafeKey[V text](b *buffer.Buffer, key string, value V) {
	valueLen, valueEncode := EncodedLen(value)
	writeField(b, key, false, len(key), value, valueEncode, valueLen)
}

// EncodeSafeKeyValue writes key=value where both are literals made of safe bytes.
func EncodeSafeKeyValue(b *buffer.Buffer, key, value string) {
	writeField(b, key, false, len(key), value, false, len(value))
}

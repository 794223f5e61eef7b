package querystring

import (
	"math"
	"strconv"

	"go-htmlcsstoimage/buffer"
)

// Maximum rendered widths of numeric values.
const (
	maxInt64Len   = 20
	maxUint64Len  = 20
	maxUint32Len  = 10
	maxFloat64Len = 25
)

// numberField reserves room for key, '=', an optional '&' and maxLen value bytes,
// and returns the writable region positioned after '='. A safe key is copied
// without scanning.
func numberField(b *buffer.Buffer, key string, safeKey bool, maxLen int) ([]byte, int) {
	keyLen, keyEncode := len(key), false
	if !safeKey {
		keyLen, keyEncode = EncodedLen(key)
	}
	sep := separatorLen(b)
	b.EnsureCapacity(sep + keyLen + 1 + maxLen)

	dst := b.Free()
	w := 0
	if sep == 1 {
		dst[w] = '&'
		w++
	}
	w += writeText(dst[w:], key, keyEncode)
	dst[w] = '='
	w++
	return dst, w
}

func writeInt(b *buffer.Buffer, key string, safeKey bool, v int64) {
	dst, w := numberField(b, key, safeKey, maxInt64Len)
	w += len(strconv.AppendInt(dst[w:w], v, 10))
	b.Advance(w)
}

func writeUint(b *buffer.Buffer, key string, safeKey bool, v uint64, maxLen int) {
	dst, w := numberField(b, key, safeKey, maxLen)
	w += len(strconv.AppendUint(dst[w:w], v, 10))
	b.Advance(w)
}

func writeFloat(b *buffer.Buffer, key string, safeKey bool, v float64) {
	dst, w := numberField(b, key, safeKey, maxFloat64Len)
	w += len(AppendFloat(dst[w:w], v))
	b.Advance(w)
}

// WriteInt writes key=v in base 10.
func WriteInt(b *buffer.Buffer, key string, v int64) { writeInt(b, key, false, v) }

// WriteUint writes key=v in base 10.
func WriteUint(b *buffer.Buffer, key string, v uint64) { writeUint(b, key, false, v, maxUint64Len) }

// WriteUint32 writes key=v in base 10.
func WriteUint32(b *buffer.Buffer, key string, v uint32) {
	writeUint(b, key, false, uint64(v), maxUint32Len)
}

// WriteFloat writes key=v using the shortest text that round-trips.
func WriteFloat(b *buffer.Buffer, key string, v float64) { writeFloat(b, key, false, v) }

// WriteSafeKeyInt is WriteInt for a key made only of safe characters.
// The key is not scanned.
func WriteSafeKeyInt(b *buffer.Buffer, key string, v int64) { writeInt(b, key, true, v) }

// WriteSafeKeyUint32 is WriteUint32 for a key made only of safe characters.
func WriteSafeKeyUint32(b *buffer.Buffer, key string, v uint32) {
	writeUint(b, key, true, uint64(v), maxUint32Len)
}

// WriteSafeKeyFloat is WriteFloat for a key made only of safe characters.
func WriteSafeKeyFloat(b *buffer.Buffer, key string, v float64) { writeFloat(b, key, true, v) }

// AppendFloat appends the invariant round-trip form of f. It uses plain
// decimal notation unless the value has more integer digits than
// max(15, significant digits) or starts more than four places after the
// decimal point; then it uses d.dddE+XX with a signed exponent of at least
// two digits. NaN and infinities are spelled out.
func AppendFloat(dst []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	case math.IsInf(f, 1):
		return append(dst, "Infinity"...)
	case math.IsInf(f, -1):
		return append(dst, "-Infinity"...)
	}

	var scratch [32]byte
	e := strconv.AppendFloat(scratch[:0], f, 'e', -1, 64)

	neg := e[0] == '-'
	if neg {
		e = e[1:]
		dst = append(dst, '-')
	}

	// e is now d[.ddd]e±XX
	var digits [20]byte
	nd := 0
	i := 0
	for ; i < len(e) && e[i] != 'e'; i++ {
		if e[i] != '.' {
			digits[nd] = e[i]
			nd++
		}
	}
	exp := 0
	expNeg := e[i+1] == '-'
	for _, c := range e[i+2:] {
		exp = exp*10 + int(c-'0')
	}
	if expNeg {
		exp = -exp
	}

	if nd == 1 && digits[0] == '0' {
		return append(dst, '0')
	}

	// scale is the number of digits before the decimal point.
	scale := exp + 1
	maxDigits := 15
	if nd > maxDigits {
		maxDigits = nd
	}
	if scale > maxDigits || scale < -3 {
		dst = append(dst, digits[0])
		if nd > 1 {
			dst = append(dst, '.')
			dst = append(dst, digits[1:nd]...)
		}
		dst = append(dst, 'E')
		if exp < 0 {
			dst = append(dst, '-')
			exp = -exp
		} else {
			dst = append(dst, '+')
		}
		if exp < 10 {
			dst = append(dst, '0')
		}
		return strconv.AppendInt(dst, int64(exp), 10)
	}

	switch {
	case scale <= 0:
		dst = append(dst, '0', '.')
		for j := 0; j < -scale; j++ {
			dst = append(dst, '0')
		}
		dst = append(dst, digits[:nd]...)
	case scale >= nd:
		dst = append(dst, digits[:nd]...)
		for j := nd; j < scale; j++ {
			dst = append(dst, '0')
		}
	default:
		dst = append(dst, digits[:scale]...)
		dst = append(dst, '.')
		dst = append(dst, digits[scale:nd]...)
	}
	return dst
}

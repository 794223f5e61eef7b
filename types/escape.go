package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

const hexDigits = "0123456789ABCDEF"

// MarshalEscaped is a MarshalFunc that escapes the way the hosted SDKs do:
// every non-ASCII character, control character and one of "<>&'+`
// becomes \uXXXX with uppercase hex (surrogate pairs above U+FFFF), and
// \b \f \n \r \t keep their short forms. Template values serialized with it
// sign the same query as the reference clients.
func MarshalEscaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return escapeStrings(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// escapeStrings rewrites the string literals of a valid JSON document.
func escapeStrings(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/4)
	inString := false
	for i := 0; i < len(data); {
		c := data[i]
		if !inString {
			out = append(out, c)
			inString = c == '"'
			i++
			continue
		}
		switch {
		case c == '"':
			out = append(out, c)
			inString = false
			i++
		case c == '\\':
			r, n := unescape(data[i:])
			out = appendEscapedRune(out, r)
			i += n
		default:
			r, n := utf8.DecodeRune(data[i:])
			out = appendEscapedRune(out, r)
			i += n
		}
	}
	return out
}

// unescape decodes one escape sequence at the start of b.
func unescape(b []byte) (rune, int) {
	if len(b) < 2 {
		return utf8.RuneError, len(b)
	}
	switch b[1] {
	case 'b':
		return '\b', 2
	case 'f':
		return '\f', 2
	case 'n':
		return '\n', 2
	case 'r':
		return '\r', 2
	case 't':
		return '\t', 2
	case 'u':
		if len(b) < 6 {
			return utf8.RuneError, len(b)
		}
		v, err := strconv.ParseUint(string(b[2:6]), 16, 16)
		if err != nil {
			return utf8.RuneError, 6
		}
		r := rune(v)
		if utf16.IsSurrogate(r) && len(b) >= 12 && b[6] == '\\' && b[7] == 'u' {
			if lo, err := strconv.ParseUint(string(b[8:12]), 16, 16); err == nil {
				if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
					return pair, 12
				}
			}
		}
		return r, 6
	default:
		// \" \\ \/
		return rune(b[1]), 2
	}
}

func appendEscapedRune(out []byte, r rune) []byte {
	switch r {
	case '\b':
		return append(out, '\\', 'b')
	case '\f':
		return append(out, '\\', 'f')
	case '\n':
		return append(out, '\\', 'n')
	case '\r':
		return append(out, '\\', 'r')
	case '\t':
		return append(out, '\\', 't')
	case '\\':
		return append(out, '\\', '\\')
	case '"', '<', '>', '&', '\'', '+', '`':
		return appendUnicodeEscape(out, r)
	}
	if r < 0x20 || r >= 0x7F {
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			return appendUnicodeEscape(appendUnicodeEscape(out, hi), lo)
		}
		return appendUnicodeEscape(out, r)
	}
	return append(out, byte(r))
}

func appendUnicodeEscape(out []byte, r rune) []byte {
	return append(out, '\\', 'u',
		hexDigits[r>>12&0xF], hexDigits[r>>8&0xF], hexDigits[r>>4&0xF], hexDigits[r&0xF])
}

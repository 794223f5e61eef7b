package querystring

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedQuery is returned when a query string cannot be split into fields.
var ErrMalformedQuery = errors.New("malformed query string")

// Param is one decoded field of a query string, in emission order.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NeedsEncoding reports whether either side of the field has bytes outside
// the safe set.
func (p Param) NeedsEncoding() bool {
	return firstUnsafe(p.Key) >= 0 || firstUnsafe(p.Value) >= 0
}

// Decode reverses the percent-encoding applied by Encode. '+' is left as is
// because the encoder never emits it for a space.
func Decode(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	return decoded, nil
}

// Parse splits raw into decoded fields, keeping their order. A leading '?' is
// ignored and an empty query yields no fields.
func Parse(raw string) ([]Param, error) {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil, nil
	}

	params := make([]Param, 0, strings.Count(raw, "&")+1)
	for _, field := range strings.Split(raw, "&") {
		if field == "" {
			return nil, fmt.Errorf("%w: empty field", ErrMalformedQuery)
		}
		rawKey, rawValue, _ := strings.Cut(field, "=")
		if rawKey == "" {
			return nil, fmt.Errorf("%w: empty key", ErrMalformedQuery)
		}
		key, err := Decode(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := Decode(rawValue)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Key: key, Value: value})
	}
	return params, nil
}

package querystring

import (
	"regexp"
	"strconv"
	"strings"
)

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// Decode parses a query string such as "?a=1&b=x&b=y".
//
// A leading '?' is stripped, segments are split on '&' and each segment on its first '='.
// Digit-only values become integers; everything else stays a string, verbatim.
// A segment without '=' (including the empty segment) yields an undefined value.
func Decode(query string) *Values {
	out := New()
	query = strings.TrimPrefix(query, "?")

	for _, segment := range strings.Split(query, "&") {
		key, raw, hasValue := strings.Cut(segment, "=")
		if !hasValue {
			out.Add(key, Undefined())
			continue
		}
		out.Add(key, parseScalar(raw))
	}

	return out
}

func parseScalar(raw string) Scalar {
	if digitsPattern.MatchString(raw) {
		// Values too large for int are kept as strings.
		if n, err := strconv.Atoi(raw); err == nil {
			return Int(n)
		}
	}
	return Str(raw)
}

// Encode renders params as "?k=v&k2=v2" in insertion order.
// Sequences emit one pair per element; undefined scalars emit the bare key.
// Nothing is escaped.
func Encode(params *Values) string {
	var sb strings.Builder
	sb.WriteByte('?')

	first := true
	for _, key := range params.keys {
		for _, item := range params.vals[key].items {
			if !first {
				sb.WriteByte('&')
			}
			first = false

			sb.WriteString(key)
			if !item.IsUndefined() {
				sb.WriteByte('=')
				sb.WriteString(item.String())
			}
		}
	}

	return sb.String()
}

// AppendTo appends the encoded params to base, joining with '&' when base already
// carries a query string.
func AppendTo(base string, params *Values) string {
	encoded := Encode(params)
	if params.Len() == 0 {
		return base
	}
	if strings.Contains(base, "?") {
		return base + "&" + encoded[1:]
	}
	return base + encoded
}

package wire

import "strings"

// Query is a mapping from query parameter name to value. Later duplicates
// overwrite earlier ones; insertion order is not preserved, per spec.md §3.
type Query map[string]string

// splitTarget decomposes a request target at the first '?' into path and
// raw query string, per spec.md §4.1.
func splitTarget(target string) (path, rawQuery string) {
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		return target[:idx], target[idx+1:]
	}
	return target, ""
}

// parseQuery splits rawQuery on '&' then '=' and percent-decodes each side.
// A literal '+' is preserved as '+', never decoded to space — this is a
// deliberate carry-over of the source behavior spec.md §4.1/§9 calls out
// explicitly, not form-encoding.
func parseQuery(rawQuery string) Query {
	q := make(Query)
	if rawQuery == "" {
		return q
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		var key, value string
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key, value = pair[:idx], pair[idx+1:]
		} else {
			key = pair
		}
		q[percentDecode(key)] = percentDecode(value)
	}
	return q
}

// percentDecode decodes %HH escapes. '+' is left untouched. Malformed
// escapes (truncated or non-hex) are passed through verbatim rather than
// rejected, matching a permissive origin server.
func percentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if hi, ok := hexVal(s[i+1]); ok {
				if lo, ok := hexVal(s[i+2]); ok {
					b.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

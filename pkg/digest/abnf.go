package digest

import (
	"fmt"
	"strings"
)

// Quote wraps s in double quotes, escaping backslash and double quote per
// the RFC 2616 quoted-string grammar. Unquote(Quote(s)) == s for any s.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote strips surrounding double quotes from s and resolves quoted-pair
// escapes. Input that is not surrounded by quotes is returned unchanged;
// some servers send bare tokens where a quoted-string is expected.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// param is one auth-param from a challenge. value keeps the raw wire form,
// quotes and escapes included, so directives can be echoed back verbatim.
type param struct {
	key   string
	value string
}

// parseParams tokenizes a comma separated auth-param list per RFC 7235
// section 2.1:
//
//	auth-param = token BWS "=" BWS ( token / quoted-string )
func parseParams(s string) ([]param, error) {
	var params []param
	rest := skipSpaceAndCommas(s)
	for rest != "" {
		key, r := parseToken(rest)
		if key == "" {
			return nil, fmt.Errorf("%w: expected directive at %q", ErrBadChallenge, rest)
		}
		rest = skipSpace(r)
		if rest == "" || rest[0] != '=' {
			return nil, fmt.Errorf("%w: directive %q has no value", ErrBadChallenge, key)
		}
		rest = skipSpace(rest[1:])

		var value string
		if rest != "" && rest[0] == '"' {
			var ok bool
			value, rest, ok = parseQuotedString(rest)
			if !ok {
				return nil, fmt.Errorf("%w: unterminated quoted-string in directive %q", ErrBadChallenge, key)
			}
		} else {
			value, rest = parseToken(rest)
			if value == "" {
				return nil, fmt.Errorf("%w: directive %q has no value", ErrBadChallenge, key)
			}
		}
		params = append(params, param{key: key, value: value})

		rest = skipSpace(rest)
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("%w: expected ',' at %q", ErrBadChallenge, rest)
		}
		rest = skipSpaceAndCommas(rest)
	}
	return params, nil
}

// parseToken consumes a leading RFC 7230 token from s.
func parseToken(s string) (token, rest string) {
	i := 0
	for i < len(s) && isTokenChar(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// parseQuotedString consumes a leading quoted-string from s, returning it in
// raw form with quotes and escapes intact. s must start with '"'.
func parseQuotedString(s string) (raw, rest string, ok bool) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return s[:i+1], s[i+1:], true
		}
	}
	return "", s, false
}

func skipSpace(s string) string {
	return strings.TrimLeft(s, " \t")
}

func skipSpaceAndCommas(s string) string {
	return strings.TrimLeft(s, " \t,")
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}

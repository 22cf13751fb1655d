package digest

import (
	"fmt"
	"strings"
)

// Challenge is one parsed WWW-Authenticate digest challenge (RFC 2617, with
// the RFC 7616 SHA-256 variants). Immutable once parsed. The realm, nonce
// and opaque directives are kept in their raw quoted wire form so a response
// can echo them byte for byte.
type Challenge struct {
	quotedRealm  string
	quotedNonce  string
	quotedOpaque string
	domain       string
	charset      string
	algorithm    Algorithm
	qops         QopSet
	stale        bool
}

// ParseChallenge parses the value of a WWW-Authenticate header. It fails
// with ErrBadChallenge when the header cannot be tokenized or lacks a realm
// or nonce, and with ErrUnsupportedChallenge when the scheme is not Digest
// or the algorithm is not recognized.
func ParseChallenge(header string) (*Challenge, error) {
	scheme, rest := parseToken(strings.TrimLeft(header, " \t"))
	if scheme == "" {
		return nil, fmt.Errorf("%w: missing auth scheme", ErrBadChallenge)
	}
	if !strings.EqualFold(scheme, "Digest") {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedChallenge, scheme)
	}

	params, err := parseParams(rest)
	if err != nil {
		return nil, err
	}

	c := &Challenge{}
	var qopValue string
	var qopPresent bool
	for _, p := range params {
		switch strings.ToLower(p.key) {
		case "realm":
			c.quotedRealm = p.value
		case "nonce":
			c.quotedNonce = p.value
		case "opaque":
			c.quotedOpaque = p.value
		case "domain":
			c.domain = Unquote(p.value)
		case "charset":
			c.charset = Unquote(p.value)
		case "stale":
			c.stale = strings.EqualFold(Unquote(p.value), "true")
		case "algorithm":
			c.algorithm, err = ParseAlgorithm(Unquote(p.value))
			if err != nil {
				return nil, err
			}
		case "qop":
			qopValue = Unquote(p.value)
			qopPresent = true
		}
		// Unknown directives are ignored, as RFC 2617 requires.
	}

	if c.quotedRealm == "" {
		return nil, fmt.Errorf("%w: missing realm directive", ErrBadChallenge)
	}
	if c.quotedNonce == "" {
		return nil, fmt.Errorf("%w: missing nonce directive", ErrBadChallenge)
	}

	c.qops = parseQopSet(qopValue, qopPresent)
	if c.qops.IsEmpty() {
		return nil, fmt.Errorf("%w: qop %q", ErrUnsupportedChallenge, qopValue)
	}
	return c, nil
}

// Realm returns the unquoted realm directive.
func (c *Challenge) Realm() string { return Unquote(c.quotedRealm) }

// QuotedRealm returns the realm directive in its raw quoted wire form.
func (c *Challenge) QuotedRealm() string { return c.quotedRealm }

// Nonce returns the unquoted nonce directive.
func (c *Challenge) Nonce() string { return Unquote(c.quotedNonce) }

// QuotedNonce returns the nonce directive in its raw quoted wire form.
func (c *Challenge) QuotedNonce() string { return c.quotedNonce }

// Opaque returns the unquoted opaque directive, or "" when absent.
func (c *Challenge) Opaque() string { return Unquote(c.quotedOpaque) }

// QuotedOpaque returns the opaque directive in its raw quoted wire form, or
// "" when absent.
func (c *Challenge) QuotedOpaque() string { return c.quotedOpaque }

// Domain returns the space separated protection-space URIs, or "".
func (c *Challenge) Domain() string { return c.domain }

// Charset returns the RFC 7616 charset directive, or "".
func (c *Challenge) Charset() string { return c.charset }

// Algorithm returns the challenge's algorithm. AlgorithmUnset when the
// challenge carried no algorithm directive.
func (c *Challenge) Algorithm() Algorithm { return c.algorithm }

// SupportedQops returns the qop types the server advertised, or the
// one-element legacy set when the challenge carried no qop directive.
func (c *Challenge) SupportedQops() QopSet { return c.qops }

// Stale reports whether the server flagged the nonce as stale, meaning the
// credentials were fine but the request should be retried with a fresh
// nonce.
func (c *Challenge) Stale() bool { return c.stale }

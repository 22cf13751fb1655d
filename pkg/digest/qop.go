package digest

import "strings"

// Qop is one quality of protection. The values are bit flags so a QopSet is
// a plain union of them.
type Qop uint8

const (
	// QopNone means no quality of protection could be resolved.
	QopNone Qop = 0
	// QopAuth is authentication only ("auth").
	QopAuth Qop = 1 << 0
	// QopAuthInt is authentication with integrity protection of the request
	// entity-body ("auth-int").
	QopAuthInt Qop = 1 << 1
	// QopLegacy means the challenge carried no qop directive at all and the
	// response must use the RFC 2069 compatible form, with no qop, cnonce or
	// nc directives.
	QopLegacy Qop = 1 << 2
)

// String returns the qop directive token, or "" for QopLegacy and QopNone,
// which never appear on the wire.
func (q Qop) String() string {
	switch q {
	case QopAuth:
		return "auth"
	case QopAuthInt:
		return "auth-int"
	}
	return ""
}

// QopSet is the set of quality of protection types a challenge supports.
type QopSet uint8

// Has reports whether q is in the set.
func (s QopSet) Has(q Qop) bool {
	return Qop(s)&q != 0
}

// IsEmpty reports whether the set has no members. A challenge with an empty
// effective qop set cannot be answered.
func (s QopSet) IsEmpty() bool {
	return s == 0
}

// Resolve picks the single qop to use for a response: auth over auth-int
// over legacy. QopNone when the set is empty.
func (s QopSet) Resolve() Qop {
	switch {
	case s.Has(QopAuth):
		return QopAuth
	case s.Has(QopAuthInt):
		return QopAuthInt
	case s.Has(QopLegacy):
		return QopLegacy
	}
	return QopNone
}

// parseQopSet maps a qop directive value to a QopSet. present is false when
// the challenge carried no qop directive, which puts the exchange in RFC
// 2069 compatibility mode. Unrecognized tokens are ignored; a challenge
// advertising only unrecognized tokens yields the empty set.
func parseQopSet(value string, present bool) QopSet {
	if !present {
		return QopSet(QopLegacy)
	}
	var set QopSet
	for _, tok := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "auth":
			set |= QopSet(QopAuth)
		case "auth-int":
			set |= QopSet(QopAuthInt)
		}
	}
	return set
}

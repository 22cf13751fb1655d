package digest

import "errors"

var (
	// ErrNilTransport is returned when a Transport has no underlying round tripper.
	ErrNilTransport = errors.New("transport is nil")
	// ErrBadChallenge is returned when a WWW-Authenticate header cannot be
	// tokenized per the RFC 2616 auth-param grammar or lacks a mandatory
	// directive.
	ErrBadChallenge = errors.New("malformed digest challenge")
	// ErrUnsupportedChallenge is returned when a challenge is well formed but
	// names an algorithm or qop set this package cannot answer.
	ErrUnsupportedChallenge = errors.New("unsupported digest challenge")
	// ErrNoChallenge is returned when a response carries no digest challenge
	// that this package can answer.
	ErrNoChallenge = errors.New("no supported digest challenge")
)

// InsufficientInformationError is returned by HeaderValue when a mandatory
// value has not been set on the ChallengeResponse. Field names the missing
// value so callers can surface an actionable message.
type InsufficientInformationError struct {
	Field string
}

func (e *InsufficientInformationError) Error() string {
	return "digest: mandatory " + e.Field + " not set"
}

package digest

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ChallengeResponse accumulates everything needed to answer a digest
// challenge and renders the Authorization header value. Create one with
// ResponseTo, then set the username, password, digest-uri and request
// method before calling HeaderValue:
//
//	cr, err := digest.ResponseTo(challenge)
//	...
//	cr.SetUsername("user").SetPassword("passwd").
//		SetDigestURI("/example").SetRequestMethod("GET")
//	value, err := cr.HeaderValue()
//
// A ChallengeResponse can be reused for subsequent requests as long as the
// server accepts the nonce; increment the nonce count and pick a fresh
// client nonce each time:
//
//	cr.IncrementNonceCount().RandomizeClientNonce()
//
// All methods are safe for concurrent use. The empty string means "not set"
// for every string-valued field.
//
// Setters that receive values parsed from a challenge cannot fail; the few
// that validate their argument (SetAlgorithm, SetSupportedQops,
// SetNonceCount) panic on values that no parsed challenge can produce, the
// same way the standard library treats misuse of a correctly typed API.
type ChallengeResponse struct {
	mu sync.Mutex

	algorithm               Algorithm
	username                string
	password                string
	clientNonce             string
	firstRequestClientNonce string
	quotedNonce             string
	nonceCount              int
	quotedOpaque            string
	qops                    QopSet
	digestURI               string
	quotedRealm             string
	requestMethod           string
	entityBodyDigest        []byte

	// a1 caches the RFC 2617 A1 value; "" means not yet computed. Every
	// write to a field A1 depends on clears it.
	a1 string
}

// NewChallengeResponse returns an empty challenge response with a random
// client nonce, a nonce count of one and the entity-body digest of a zero
// length body. Prefer ResponseTo when answering a specific challenge.
func NewChallengeResponse() *ChallengeResponse {
	cnonce := randomNonce()
	r := &ChallengeResponse{
		nonceCount:              1,
		clientNonce:             cnonce,
		firstRequestClientNonce: cnonce,
	}
	r.entityBodyDigest = r.algorithm.digest(nil)
	return r
}

// IsChallengeSupported reports whether a response to c can be generated,
// given that the other required values are supplied.
func IsChallengeSupported(c *Challenge) bool {
	return c.Algorithm().Supported() && !c.SupportedQops().IsEmpty()
}

// ResponseTo returns a new challenge response seeded with c's realm, nonce,
// opaque and algorithm directives and supported qop set. It fails with
// ErrUnsupportedChallenge when IsChallengeSupported(c) is false.
func ResponseTo(c *Challenge) (*ChallengeResponse, error) {
	r := NewChallengeResponse()
	if err := r.ApplyChallenge(c); err != nil {
		return nil, err
	}
	return r, nil
}

// ApplyChallenge copies c's realm, nonce, opaque and algorithm directives
// and supported qop set onto r. The nonce count is reset because the nonce
// changes. It fails with ErrUnsupportedChallenge when IsChallengeSupported(c)
// is false.
func (r *ChallengeResponse) ApplyChallenge(c *Challenge) error {
	if !IsChallengeSupported(c) {
		return fmt.Errorf("%w: algorithm %d, qop set %#x", ErrUnsupportedChallenge, int(c.Algorithm()), uint8(c.SupportedQops()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setQuotedNonce(c.QuotedNonce())
	r.quotedOpaque = c.QuotedOpaque()
	r.quotedRealm = c.QuotedRealm()
	r.setAlgorithm(c.Algorithm())
	r.qops = c.SupportedQops()
	r.a1 = ""
	return nil
}

// SetUsername sets the username to authenticate as.
func (r *ChallengeResponse) SetUsername(username string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.username = username
	r.a1 = ""
	return r
}

// Username returns the username to authenticate as.
func (r *ChallengeResponse) Username() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.username
}

// SetPassword sets the password to authenticate with.
func (r *ChallengeResponse) SetPassword(password string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.password = password
	r.a1 = ""
	return r
}

// Password returns the password to authenticate with.
func (r *ChallengeResponse) Password() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.password
}

// SetAlgorithm sets the algorithm directive, which must match the
// challenge's. The stored entity-body digest is reset to the digest of a
// zero length body because it must be computed under the new algorithm; if
// you need both, set the algorithm first. Panics when a is not a valid
// Algorithm value.
func (r *ChallengeResponse) SetAlgorithm(a Algorithm) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setAlgorithm(a)
	return r
}

func (r *ChallengeResponse) setAlgorithm(a Algorithm) {
	if !a.Supported() {
		panic(fmt.Sprintf("digest: invalid algorithm %d", int(a)))
	}
	r.algorithm = a
	r.entityBodyDigest = a.digest(nil)
	r.a1 = ""
}

// Algorithm returns the algorithm directive value.
func (r *ChallengeResponse) Algorithm() Algorithm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.algorithm
}

// SetClientNonce sets the cnonce directive, unquoted. The default is a
// random string, which suits almost every caller. If you override the
// client nonce of the first request, also call SetFirstRequestClientNonce
// or the session algorithm variants will derive the wrong A1.
func (r *ChallengeResponse) SetClientNonce(cnonce string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clientNonce = cnonce
	if r.algorithm.Session() {
		r.a1 = ""
	}
	return r
}

// ClientNonce returns the unquoted cnonce directive value.
func (r *ChallengeResponse) ClientNonce() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientNonce
}

// RandomizeClientNonce replaces the client nonce with a fresh random value.
func (r *ChallengeResponse) RandomizeClientNonce() *ChallengeResponse {
	return r.SetClientNonce(randomNonce())
}

// SetFirstRequestClientNonce sets the client nonce used when this nonce was
// first answered. Session algorithm variants mix it into A1; reusing the
// response with a new client nonce must not change it. The default is the
// initial random client nonce, so this only needs calling when you override
// the client nonce yourself.
func (r *ChallengeResponse) SetFirstRequestClientNonce(cnonce string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.firstRequestClientNonce = cnonce
	if r.algorithm.Session() {
		r.a1 = ""
	}
	return r
}

// FirstRequestClientNonce returns the client nonce used when this nonce was
// first answered.
func (r *ChallengeResponse) FirstRequestClientNonce() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstRequestClientNonce
}

// SetQuotedNonce sets the nonce directive in raw quoted form, as received
// from the challenge. A new nonce starts a fresh sequence, so the nonce
// count is reset to one.
func (r *ChallengeResponse) SetQuotedNonce(quoted string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setQuotedNonce(quoted)
	return r
}

func (r *ChallengeResponse) setQuotedNonce(quoted string) {
	r.quotedNonce = quoted
	r.nonceCount = 1
	if r.algorithm.Session() {
		r.a1 = ""
	}
}

// QuotedNonce returns the nonce directive in raw quoted form.
func (r *ChallengeResponse) QuotedNonce() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotedNonce
}

// SetNonce sets the nonce directive from its unquoted value.
func (r *ChallengeResponse) SetNonce(nonce string) *ChallengeResponse {
	return r.SetQuotedNonce(Quote(nonce))
}

// Nonce returns the unquoted nonce directive value.
func (r *ChallengeResponse) Nonce() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Unquote(r.quotedNonce)
}

// SetNonceCount sets how many times this nonce has been used, starting at
// one. Panics when n is not positive; the nc directive is rendered as
// unsigned hex.
func (r *ChallengeResponse) SetNonceCount(n int) *ChallengeResponse {
	if n < 1 {
		panic(fmt.Sprintf("digest: nonce count %d out of range", n))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonceCount = n
	return r
}

// IncrementNonceCount adds one to the nonce count. Call it each time a
// challenge response is reused for a new request.
func (r *ChallengeResponse) IncrementNonceCount() *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonceCount++
	return r
}

// ResetNonceCount sets the nonce count back to one.
func (r *ChallengeResponse) ResetNonceCount() *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonceCount = 1
	return r
}

// NonceCount returns how many times this nonce has been used.
func (r *ChallengeResponse) NonceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonceCount
}

// SetQuotedOpaque sets the opaque directive in raw quoted form, or "" to
// omit it. The challenge's opaque is echoed verbatim, so prefer this over
// SetOpaque.
func (r *ChallengeResponse) SetQuotedOpaque(quoted string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotedOpaque = quoted
	return r
}

// QuotedOpaque returns the opaque directive in raw quoted form, or "".
func (r *ChallengeResponse) QuotedOpaque() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotedOpaque
}

// SetOpaque sets the opaque directive from its unquoted value.
func (r *ChallengeResponse) SetOpaque(opaque string) *ChallengeResponse {
	if opaque == "" {
		return r.SetQuotedOpaque("")
	}
	return r.SetQuotedOpaque(Quote(opaque))
}

// Opaque returns the unquoted opaque directive value, or "".
func (r *ChallengeResponse) Opaque() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Unquote(r.quotedOpaque)
}

// SetSupportedQops sets the qop types the server accepts. Normally seeded
// from the challenge; setting it manually forces a particular qop. Panics
// when the set is empty.
func (r *ChallengeResponse) SetSupportedQops(set QopSet) *ChallengeResponse {
	if set.IsEmpty() {
		panic("digest: supported qop set cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qops = set
	return r
}

// SupportedQops returns the qop types the server accepts.
func (r *ChallengeResponse) SupportedQops() QopSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qops
}

// Qop returns the quality of protection the response will use, picked from
// the supported set. QopNone when the set is empty.
func (r *ChallengeResponse) Qop() Qop {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qops.Resolve()
}

// SetDigestURI sets the uri directive, which must equal the request-target
// of the request line. If in doubt use the path of the URL being requested.
func (r *ChallengeResponse) SetDigestURI(uri string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.digestURI = uri
	return r
}

// DigestURI returns the uri directive value.
func (r *ChallengeResponse) DigestURI() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.digestURI
}

// SetQuotedRealm sets the realm directive in raw quoted form, as received
// from the challenge.
func (r *ChallengeResponse) SetQuotedRealm(quoted string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotedRealm = quoted
	r.a1 = ""
	return r
}

// QuotedRealm returns the realm directive in raw quoted form.
func (r *ChallengeResponse) QuotedRealm() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotedRealm
}

// SetRealm sets the realm directive from its unquoted value.
func (r *ChallengeResponse) SetRealm(realm string) *ChallengeResponse {
	return r.SetQuotedRealm(Quote(realm))
}

// Realm returns the unquoted realm directive value.
func (r *ChallengeResponse) Realm() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Unquote(r.quotedRealm)
}

// SetRequestMethod sets the HTTP method of the request being authenticated,
// such as "GET" or "POST".
func (r *ChallengeResponse) SetRequestMethod(method string) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestMethod = method
	return r
}

// RequestMethod returns the HTTP method of the request being authenticated.
func (r *ChallengeResponse) RequestMethod() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requestMethod
}

// SetEntityBody stores the digest of the request entity-body, consulted only
// for auth-int. The body itself is not retained. The digest is computed
// under the current algorithm, so set the algorithm first.
func (r *ChallengeResponse) SetEntityBody(body []byte) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entityBodyDigest = r.algorithm.digest(body)
	return r
}

// SetEntityBodyDigest stores a precomputed entity-body digest, for callers
// that already hashed the body. It must have been computed with the hash of
// the current algorithm.
func (r *ChallengeResponse) SetEntityBodyDigest(digest []byte) *ChallengeResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entityBodyDigest = append([]byte(nil), digest...)
	return r
}

// EntityBodyDigest returns a copy of the stored entity-body digest. The
// default is the digest of a zero length body.
func (r *ChallengeResponse) EntityBodyDigest() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.entityBodyDigest...)
}

// IsEntityBodyDigestRequired reports whether an entity-body digest is needed
// to generate the header, which is the case only when the resolved qop is
// auth-int.
func (r *ChallengeResponse) IsEntityBodyDigestRequired() bool {
	return r.Qop() == QopAuthInt
}

// HeaderValue renders the value for the Authorization header. It fails with
// an *InsufficientInformationError naming the first missing mandatory value.
// It has no side effect other than caching A1.
func (r *ChallengeResponse) HeaderValue() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	qop := r.qops.Resolve()
	switch {
	case r.username == "":
		return "", &InsufficientInformationError{Field: "username"}
	case r.password == "":
		return "", &InsufficientInformationError{Field: "password"}
	case r.quotedRealm == "":
		return "", &InsufficientInformationError{Field: "realm"}
	case r.quotedNonce == "":
		return "", &InsufficientInformationError{Field: "nonce"}
	case r.digestURI == "":
		return "", &InsufficientInformationError{Field: "digest-uri"}
	case r.requestMethod == "":
		return "", &InsufficientInformationError{Field: "request method"}
	case qop == QopNone:
		return "", &InsufficientInformationError{Field: "supported qop set"}
	case r.clientNonce == "" && qop != QopLegacy:
		return "", &InsufficientInformationError{Field: "client nonce"}
	case r.firstRequestClientNonce == "" && r.algorithm.Session():
		return "", &InsufficientInformationError{Field: "first request client nonce"}
	}

	response := r.calculateResponse(qop)

	var b strings.Builder
	b.WriteString("Digest username=")
	b.WriteString(Quote(r.username))
	b.WriteString(",realm=")
	b.WriteString(r.quotedRealm)
	b.WriteString(",nonce=")
	b.WriteString(r.quotedNonce)
	b.WriteString(",uri=")
	b.WriteString(Quote(r.digestURI))
	b.WriteString(",response=")
	b.WriteString(Quote(response))
	if qop != QopLegacy {
		b.WriteString(",cnonce=")
		b.WriteString(Quote(r.clientNonce))
	}
	if r.quotedOpaque != "" {
		b.WriteString(",opaque=")
		b.WriteString(r.quotedOpaque)
	}
	if r.algorithm != AlgorithmUnset {
		b.WriteString(",algorithm=")
		b.WriteString(r.algorithm.String())
	}
	if qop != QopLegacy {
		b.WriteString(",qop=")
		b.WriteString(qop.String())
		fmt.Fprintf(&b, ",nc=%08x", r.nonceCount)
	}
	return b.String(), nil
}

// calculateResponse is the request-digest of RFC 2617 section 3.2.2.1,
// generalized over the hash picked by the algorithm. Callers hold r.mu.
func (r *ChallengeResponse) calculateResponse(qop Qop) string {
	secret := r.algorithm.hashHex(r.a1Value())
	ha2 := r.algorithm.hashHex(r.a2Value(qop))

	var data string
	if qop == QopLegacy {
		data = Unquote(r.quotedNonce) + ":" + ha2
	} else {
		data = strings.Join([]string{
			Unquote(r.quotedNonce),
			fmt.Sprintf("%08x", r.nonceCount),
			r.clientNonce,
			qop.String(),
			ha2,
		}, ":")
	}
	return r.algorithm.hashHex(secret + ":" + data)
}

// a1Value returns the cached A1, computing it on demand. For session
// algorithm variants A1 binds the hashed credential triple to the nonce and
// the first request's client nonce. Callers hold r.mu.
func (r *ChallengeResponse) a1Value() string {
	if r.a1 == "" {
		cred := r.username + ":" + Unquote(r.quotedRealm) + ":" + r.password
		if r.algorithm.Session() {
			r.a1 = r.algorithm.hashHex(cred) + ":" + Unquote(r.quotedNonce) + ":" + r.firstRequestClientNonce
		} else {
			r.a1 = cred
		}
	}
	return r.a1
}

// a2Value is A2 of RFC 2617 section 3.2.2.3. Callers hold r.mu.
func (r *ChallengeResponse) a2Value(qop Qop) string {
	if qop == QopAuthInt {
		return r.requestMethod + ":" + r.digestURI + ":" + hex.EncodeToString(r.entityBodyDigest)
	}
	return r.requestMethod + ":" + r.digestURI
}

// String renders the response state for diagnostics. The password is
// redacted.
func (r *ChallengeResponse) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf(
		"ChallengeResponse{algorithm=%s,realm=%s,nonce=%s,nc=%d,cnonce=%s,opaque=%s,username=%s,password=*,method=%s,uri=%s}",
		r.algorithm, r.quotedRealm, r.quotedNonce, r.nonceCount, r.clientNonce,
		r.quotedOpaque, r.username, r.requestMethod, r.digestURI)
}

// randomNonce returns a fresh client nonce: the hex of a random UUID, which
// draws from crypto/rand.
func randomNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

package digest

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// Transport is an http.RoundTripper that answers digest challenges. It sends
// the request, and on a 401 with a supported digest challenge retries once
// with an Authorization header. Challenge responses are kept per nonce so
// follow-up requests against the same nonce reuse the session with an
// incremented nonce count instead of paying the extra round trip a fresh
// challenge would cost.
type Transport struct {
	Username  string
	Password  string
	Transport http.RoundTripper

	// mu guards sessions.
	mu       sync.Mutex
	sessions map[string]*ChallengeResponse
}

// NewTransport creates a digest transport around next, or around
// DefaultHTTPTransport when next is nil.
func NewTransport(username, password string, next http.RoundTripper) *Transport {
	if next == nil {
		next = DefaultHTTPTransport()
	}
	return &Transport{
		Username:  username,
		Password:  password,
		Transport: next,
		// consider an lru if servers hand out many nonces per connection
		sessions: map[string]*ChallengeResponse{},
	}
}

// NewHTTPClient returns an HTTP client that uses the digest transport.
func (t *Transport) NewHTTPClient() (*http.Client, error) {
	if t.Transport == nil {
		return nil, ErrNilTransport
	}
	return &http.Client{Transport: t}, nil
}

// DefaultHTTPTransport returns a plain http.Transport with sane timeouts.
func DefaultHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// session returns the challenge response to use for c. A nonce we have
// answered before is reused with a bumped nonce count and a fresh client
// nonce; anything else, including a stale nonce, starts a new session.
func (t *Transport) session(c *Challenge) (*ChallengeResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions == nil {
		t.sessions = map[string]*ChallengeResponse{}
	}
	if cr, ok := t.sessions[c.Nonce()]; ok && !c.Stale() {
		return cr.IncrementNonceCount().RandomizeClientNonce(), nil
	}
	cr, err := ResponseTo(c)
	if err != nil {
		return nil, err
	}
	cr.SetUsername(t.Username).SetPassword(t.Password)
	t.sessions[c.Nonce()] = cr
	return cr, nil
}

// challengeFrom picks the first supported digest challenge advertised by
// resp, or nil.
func challengeFrom(resp *http.Response) *Challenge {
	for _, value := range resp.Header.Values("WWW-Authenticate") {
		c, err := ParseChallenge(value)
		if err != nil {
			continue
		}
		if IsChallengeSupported(c) {
			return c
		}
	}
	return nil
}

// RoundTrip sends the request and intercepts a 401. One extra attempt is
// allowed when the server flags the nonce as stale, which is not an
// authentication failure.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Transport == nil {
		return nil, ErrNilTransport
	}

	// cache the body so the request can be replayed
	var body []byte
	hasBody := req.Body != nil
	if hasBody {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	resp, err := t.Transport.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		chal := challengeFrom(resp)
		if chal == nil {
			return resp, nil
		}
		if attempt > 0 && !chal.Stale() {
			// same nonce rejected twice: bad credentials, give up
			return resp, nil
		}

		// drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		cr, err := t.session(chal)
		if err != nil {
			return nil, err
		}
		if cr.IsEntityBodyDigestRequired() {
			cr.SetEntityBody(body)
		}

		retry := req.Clone(req.Context())
		if hasBody {
			retry.Body = io.NopCloser(bytes.NewReader(body))
		}
		if err := cr.Authorize(retry); err != nil {
			return nil, err
		}
		if resp, err = t.Transport.RoundTrip(retry); err != nil || resp.StatusCode != http.StatusUnauthorized {
			return resp, err
		}
	}
	return resp, nil
}

package digest

import (
	"fmt"
	"io"
	"net/http"
)

// FromResponse scans the WWW-Authenticate headers of a 401 response for a
// digest challenge this package can answer and returns a ChallengeResponse
// seeded from the first one found. It fails with ErrNoChallenge when none of
// the advertised challenges is a supported digest challenge. The caller
// still has to supply the username, password, request method and digest-uri
// before generating a header; Authorize does all of that in one call.
func FromResponse(resp *http.Response) (*ChallengeResponse, error) {
	for _, value := range resp.Header.Values("WWW-Authenticate") {
		c, err := ParseChallenge(value)
		if err != nil {
			continue
		}
		if cr, err := ResponseTo(c); err == nil {
			return cr, nil
		}
	}
	return nil, ErrNoChallenge
}

// Authorize fills in the request specific values from req, generates the
// header value and sets it as req's Authorization header. The request method
// and digest-uri are taken from the request line; when the resolved qop is
// auth-int and the request can replay its body, the entity-body digest is
// computed from it.
func (r *ChallengeResponse) Authorize(req *http.Request) error {
	r.SetRequestMethod(req.Method).SetDigestURI(req.URL.RequestURI())
	if r.IsEntityBodyDigestRequired() && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return fmt.Errorf("digest: reading request body: %w", err)
		}
		defer body.Close()
		h := r.Algorithm().newHash()
		if _, err := io.Copy(h, body); err != nil {
			return fmt.Errorf("digest: hashing request body: %w", err)
		}
		r.SetEntityBodyDigest(h.Sum(nil))
	}
	value, err := r.HeaderValue()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", value)
	return nil
}

// Package digest implements client-side HTTP digest access authentication
// per RFC 2617, including the RFC 7616 SHA-256 variants. It turns the value
// of a WWW-Authenticate header into a Challenge, and a Challenge plus
// credentials into the value of an Authorization header:
//
//	c, err := digest.ParseChallenge(resp.Header.Get("WWW-Authenticate"))
//	cr, err := digest.ResponseTo(c)
//	value, err := cr.SetUsername("user").SetPassword("passwd").
//		SetDigestURI("/example").SetRequestMethod("GET").
//		HeaderValue()
//
// FromResponse and (*ChallengeResponse).Authorize wrap that flow for
// net/http users, and Transport is an http.RoundTripper that does the whole
// 401 dance transparently.
//
// Supported algorithms are MD5, MD5-sess, SHA-256 and SHA-256-sess, with
// qop auth, auth-int and the RFC 2069 compatibility mode for challenges
// that carry no qop directive.
package digest

package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Algorithm is the digest algorithm negotiated by a challenge. The zero
// value, AlgorithmUnset, means the challenge carried no algorithm directive:
// hashing falls back to MD5 per RFC 2617 and no algorithm directive is
// echoed in the response.
type Algorithm int

const (
	AlgorithmUnset Algorithm = iota
	AlgorithmMD5
	AlgorithmMD5Sess
	AlgorithmSHA256
	AlgorithmSHA256Sess
)

// ParseAlgorithm maps an algorithm directive token to an Algorithm. The
// empty string maps to AlgorithmUnset. Tokens are matched case-insensitively;
// servers disagree on the capitalization of "MD5-sess".
func ParseAlgorithm(token string) (Algorithm, error) {
	switch {
	case token == "":
		return AlgorithmUnset, nil
	case strings.EqualFold(token, "MD5"):
		return AlgorithmMD5, nil
	case strings.EqualFold(token, "MD5-sess"):
		return AlgorithmMD5Sess, nil
	case strings.EqualFold(token, "SHA-256"):
		return AlgorithmSHA256, nil
	case strings.EqualFold(token, "SHA-256-sess"):
		return AlgorithmSHA256Sess, nil
	}
	return AlgorithmUnset, fmt.Errorf("%w: algorithm %q", ErrUnsupportedChallenge, token)
}

// Supported reports whether a is one of the algorithms this package can
// answer. Only out-of-range values are unsupported.
func (a Algorithm) Supported() bool {
	return a >= AlgorithmUnset && a <= AlgorithmSHA256Sess
}

// Session reports whether a is a session variant ("-sess"), where A1 is
// derived once per nonce from the hashed credential triple.
func (a Algorithm) Session() bool {
	return a == AlgorithmMD5Sess || a == AlgorithmSHA256Sess
}

// String returns the directive token for a, or "" for AlgorithmUnset.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmMD5:
		return "MD5"
	case AlgorithmMD5Sess:
		return "MD5-sess"
	case AlgorithmSHA256:
		return "SHA-256"
	case AlgorithmSHA256Sess:
		return "SHA-256-sess"
	}
	return ""
}

// newHash returns a fresh hash for a. The "-sess" suffix never changes the
// hash primitive, only the A1 derivation.
func (a Algorithm) newHash() hash.Hash {
	if a == AlgorithmSHA256 || a == AlgorithmSHA256Sess {
		return sha256.New()
	}
	return md5.New()
}

// hashHex is H(data) from RFC 2617 section 3.2.1, as lowercase hex.
func (a Algorithm) hashHex(data string) string {
	h := a.newHash()
	io.WriteString(h, data)
	return hex.EncodeToString(h.Sum(nil))
}

// digest hashes raw bytes under a, for entity-body digests.
func (a Algorithm) digest(data []byte) []byte {
	h := a.newHash()
	h.Write(data)
	return h.Sum(nil)
}

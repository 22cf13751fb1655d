package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rawChallenge = `Digest realm="http-auth@example.org", qop="auth,auth-int", algorithm=SHA-256, nonce="7ypf/xlj9XXwfDPEoM4URrv/xwf94BcCAzFZH4GiTo0v", opaque="FQhe/qaU925kfnzjCev0ciny7QMkPqMAFRtzCUYo5tdS"`

func TestParseChallenge(t *testing.T) {
	c, err := ParseChallenge(rawChallenge)
	require.NoError(t, err)
	assert.Equal(t, "http-auth@example.org", c.Realm())
	assert.Equal(t, `"http-auth@example.org"`, c.QuotedRealm())
	assert.Equal(t, "7ypf/xlj9XXwfDPEoM4URrv/xwf94BcCAzFZH4GiTo0v", c.Nonce())
	assert.Equal(t, "FQhe/qaU925kfnzjCev0ciny7QMkPqMAFRtzCUYo5tdS", c.Opaque())
	assert.Equal(t, AlgorithmSHA256, c.Algorithm())
	assert.False(t, c.Stale())
	assert.True(t, c.SupportedQops().Has(QopAuth))
	assert.True(t, c.SupportedQops().Has(QopAuthInt))
	assert.False(t, c.SupportedQops().Has(QopLegacy))
}

func TestParseChallengeLegacyQop(t *testing.T) {
	// no qop directive at all: RFC 2069 compatibility mode
	c, err := ParseChallenge(`Digest realm="r", nonce="n"`)
	require.NoError(t, err)
	assert.Equal(t, QopSet(QopLegacy), c.SupportedQops())
	assert.Equal(t, QopLegacy, c.SupportedQops().Resolve())
	assert.Equal(t, AlgorithmUnset, c.Algorithm())
}

func TestParseChallengeStale(t *testing.T) {
	c, err := ParseChallenge(`Digest realm="r", nonce="n", stale=true`)
	require.NoError(t, err)
	assert.True(t, c.Stale())

	c, err = ParseChallenge(`Digest realm="r", nonce="n", stale="TRUE"`)
	require.NoError(t, err)
	assert.True(t, c.Stale())

	c, err = ParseChallenge(`Digest realm="r", nonce="n", stale=false`)
	require.NoError(t, err)
	assert.False(t, c.Stale())
}

func TestParseChallengeUnknownQopTokensIgnored(t *testing.T) {
	c, err := ParseChallenge(`Digest realm="r", nonce="n", qop="auth,token-window"`)
	require.NoError(t, err)
	assert.Equal(t, QopSet(QopAuth), c.SupportedQops())
}

func TestParseChallengeUnknownDirectivesIgnored(t *testing.T) {
	c, err := ParseChallenge(`Digest realm="r", nonce="n", domain="/protected", charset=UTF-8, futuredirective="x"`)
	require.NoError(t, err)
	assert.Equal(t, "/protected", c.Domain())
	assert.Equal(t, "UTF-8", c.Charset())
}

func TestParseChallengeErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrBadChallenge},
		{"basic scheme", `Basic realm="r"`, ErrUnsupportedChallenge},
		{"missing realm", `Digest nonce="n"`, ErrBadChallenge},
		{"missing nonce", `Digest realm="r"`, ErrBadChallenge},
		{"unknown algorithm", `Digest realm="r", nonce="n", algorithm=SHA-512-256`, ErrUnsupportedChallenge},
		{"only unknown qop", `Digest realm="r", nonce="n", qop="token-window"`, ErrUnsupportedChallenge},
		{"empty qop", `Digest realm="r", nonce="n", qop=""`, ErrUnsupportedChallenge},
		{"garbage", `Digest realm=`, ErrBadChallenge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChallenge(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseChallengeAlgorithmCaseInsensitive(t *testing.T) {
	c, err := ParseChallenge(`Digest realm="r", nonce="n", algorithm=md5-SESS`)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmMD5Sess, c.Algorithm())
	assert.True(t, c.Algorithm().Session())
}

func TestParseAlgorithm(t *testing.T) {
	for token, want := range map[string]Algorithm{
		"":             AlgorithmUnset,
		"MD5":          AlgorithmMD5,
		"MD5-sess":     AlgorithmMD5Sess,
		"SHA-256":      AlgorithmSHA256,
		"SHA-256-sess": AlgorithmSHA256Sess,
	} {
		a, err := ParseAlgorithm(token)
		require.NoError(t, err)
		assert.Equal(t, want, a)
		assert.Equal(t, token, a.String())
	}

	_, err := ParseAlgorithm("SHA-512")
	assert.ErrorIs(t, err, ErrUnsupportedChallenge)
}

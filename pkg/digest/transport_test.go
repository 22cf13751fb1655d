package digest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// digestHandler is a minimal server side of RFC 2617 for exercising the
// transport: one realm, one rotating nonce, qop=auth, MD5.
type digestHandler struct {
	t        *testing.T
	realm    string
	nonce    string
	username string
	password string

	ncSeen []string
}

func (h *digestHandler) challenge(w http.ResponseWriter, stale bool) {
	v := fmt.Sprintf("Digest realm=%q, qop=\"auth\", nonce=%q, algorithm=MD5", h.realm, h.nonce)
	if stale {
		v += ", stale=true"
	}
	w.Header().Set("WWW-Authenticate", v)
	w.WriteHeader(http.StatusUnauthorized)
}

func (h *digestHandler) verify(r *http.Request) (map[string]string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Digest ") {
		return nil, false
	}
	params, err := parseParams(strings.TrimPrefix(auth, "Digest "))
	require.NoError(h.t, err)
	m := map[string]string{}
	for _, p := range params {
		m[p.key] = Unquote(p.value)
	}

	alg := AlgorithmMD5
	ha1 := alg.hashHex(h.username + ":" + h.realm + ":" + h.password)
	ha2 := alg.hashHex(r.Method + ":" + m["uri"])
	want := alg.hashHex(ha1 + ":" + strings.Join([]string{
		m["nonce"], m["nc"], m["cnonce"], "auth", ha2,
	}, ":"))
	return m, m["nonce"] == h.nonce && m["response"] == want
}

func (h *digestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := h.verify(r)
	if !ok {
		h.challenge(w, false)
		return
	}
	h.ncSeen = append(h.ncSeen, m["nc"])
	io.Copy(io.Discard, r.Body)
	fmt.Fprint(w, "welcome")
}

func TestTransportAnswersChallenge(t *testing.T) {
	handler := &digestHandler{
		t: t, realm: "transport zone", nonce: "abc123",
		username: "Mufasa", password: "Circle Of Life",
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client, err := NewTransport("Mufasa", "Circle Of Life", nil).NewHTTPClient()
	require.NoError(t, err)

	resp, err := client.Get(srv.URL + "/dir/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "welcome", string(body))
	assert.Equal(t, []string{"00000001"}, handler.ncSeen)
}

func TestTransportReusesSession(t *testing.T) {
	handler := &digestHandler{
		t: t, realm: "transport zone", nonce: "abc123",
		username: "u", password: "p",
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client, err := NewTransport("u", "p", nil).NewHTTPClient()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL + "/")
		require.NoError(t, err)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, []string{"00000001", "00000002", "00000003"}, handler.ncSeen)
}

func TestTransportRetriesStaleNonce(t *testing.T) {
	handler := &digestHandler{
		t: t, realm: "transport zone", nonce: "first",
		username: "u", password: "p",
	}
	rotated := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := handler.verify(r); ok && !rotated {
			// good credentials against a nonce we just expired
			rotated = true
			handler.nonce = "second"
			handler.challenge(w, true)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client, err := NewTransport("u", "p", nil).NewHTTPClient()
	require.NoError(t, err)

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"00000001"}, handler.ncSeen)
}

func TestTransportBadCredentialsGiveUp(t *testing.T) {
	handler := &digestHandler{
		t: t, realm: "transport zone", nonce: "abc123",
		username: "u", password: "right",
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client, err := NewTransport("u", "wrong", nil).NewHTTPClient()
	require.NoError(t, err)

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, handler.ncSeen)
}

func TestTransportPostReplaysBody(t *testing.T) {
	var got string
	handler := &digestHandler{
		t: t, realm: "transport zone", nonce: "abc123",
		username: "u", password: "p",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := handler.verify(r); !ok {
			io.Copy(io.Discard, r.Body)
			handler.challenge(w, false)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = string(body)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client, err := NewTransport("u", "p", nil).NewHTTPClient()
	require.NoError(t, err)

	resp, err := client.Post(srv.URL+"/", "text/plain", strings.NewReader("v=1"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "v=1", got)
}

func TestTransportNilTransport(t *testing.T) {
	tr := &Transport{}
	_, err := tr.NewHTTPClient()
	assert.ErrorIs(t, err, ErrNilTransport)
	_, err = tr.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.ErrorIs(t, err, ErrNilTransport)
}

func TestTransportPassesThroughNonChallenges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewTransport("u", "p", nil).NewHTTPClient()
	require.NoError(t, err)
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

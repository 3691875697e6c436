package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient(t *testing.T) {
	// Setup test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify User-Agent header
		userAgent := r.Header.Get("User-Agent")
		assert.Equal(t, "LuzYGas/"+Version(), userAgent, "User-Agent should match expected format")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timeout := 5 * time.Second
	client := HTTPClient(timeout)

	assert.Equal(t, timeout, client.Timeout, "Timeout should be set correctly")
	assert.NotNil(t, client.Transport, "Transport should not be nil")
	assert.Nil(t, client.Jar, "plain client should not keep cookies")

	req, err := http.NewRequest("GET", server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionHTTPClient(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		c, err := r.Cookie("consent")
		require.NoError(t, err, "seeded cookie should be sent")
		assert.Equal(t, "yes", c.Value)

		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		} else {
			s, err := r.Cookie("session")
			require.NoError(t, err, "server cookie should be kept between requests")
			assert.Equal(t, "abc", s.Value)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := SessionHTTPClient(time.Second, []string{server.URL}, []*http.Cookie{{Name: "consent", Value: "yes", Path: "/"}})
	require.NoError(t, err)
	require.NotNil(t, client.Jar)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, 2, calls)
}

func TestSessionHTTPClientInvalidURL(t *testing.T) {
	_, err := SessionHTTPClient(time.Second, []string{"not a url"}, []*http.Cookie{{Name: "a", Value: "b"}})
	assert.Error(t, err)
}

func TestJoinURL(t *testing.T) {
	u, err := JoinURL("https://example.com/api", "houses", "H1", "products", "C1", "invoices")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/houses/H1/products/C1/invoices", u)

	_, err = JoinURL("/relative", "x")
	assert.Error(t, err)
}

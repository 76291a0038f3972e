package base

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T, name string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"server":"` + name + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestPostJSONRoutesEachCallToItsURL(t *testing.T) {
	sandbox, sandboxHits := newEchoServer(t, "sandbox")
	production, productionHits := newEchoServer(t, "production")

	// One shared client must serve both environments without carrying
	// state from the previous call.
	c := NewHTTPClient("test", 5)

	resp, err := c.PostJSON(context.Background(), sandbox.URL+"/v1/charges", map[string]any{}, nil)
	require.NoError(t, err)
	var out struct {
		Server string `json:"server"`
	}
	require.NoError(t, resp.UnmarshalJSON(&out))
	assert.Equal(t, "sandbox", out.Server)

	resp, err = c.PostJSON(context.Background(), production.URL+"/v1/charges", map[string]any{}, nil)
	require.NoError(t, err)
	require.NoError(t, resp.UnmarshalJSON(&out))
	assert.Equal(t, "production", out.Server)

	resp, err = c.PostJSON(context.Background(), sandbox.URL+"/v1/charges", map[string]any{}, nil)
	require.NoError(t, err)
	require.NoError(t, resp.UnmarshalJSON(&out))
	assert.Equal(t, "sandbox", out.Server)

	assert.Equal(t, 2, *sandboxHits)
	assert.Equal(t, 1, *productionHits)
}

func TestHTTPResponseIsSuccess(t *testing.T) {
	assert.True(t, (&HTTPResponse{StatusCode: 200}).IsSuccess())
	assert.True(t, (&HTTPResponse{StatusCode: 299}).IsSuccess())
	assert.False(t, (&HTTPResponse{StatusCode: 302}).IsSuccess())
	assert.False(t, (&HTTPResponse{StatusCode: 500}).IsSuccess())
}

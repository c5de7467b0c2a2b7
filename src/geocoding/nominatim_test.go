package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stake-plus/civic-proposals/src/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Plaça Catalunya, Barcelona", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`[{"lat":"41.3870","lon":"2.1700","display_name":"Plaça de Catalunya"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithHTTPClient(srv.Client()))
	got, err := c.Lookup(context.Background(), "Plaça Catalunya, Barcelona")
	require.NoError(t, err)
	assert.InDelta(t, 41.387, got.Latitude, 1e-9)
	assert.InDelta(t, 2.17, got.Longitude, 1e-9)
}

func TestLookupNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithHTTPClient(srv.Client())).Lookup(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestLookupRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()), WithRetry(2, time.Millisecond))
	_, err := c.Lookup(context.Background(), "somewhere")
	require.Error(t, err)
	assert.True(t, logging.IsRateLimit(err))
}

package fetchers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/internal/logging"
	"scrapeforge/pkg/models"
)

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	logger := logging.GetGlobalLogger()
	f := NewHTTPFetcher(5*time.Second, "test-agent", logger)

	result, err := f.Fetch(context.Background(), srv.URL, models.FetchOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 200, result.StatusCode)
	assert.Contains(t, result.HTML, "hello")
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	logger := logging.GetGlobalLogger()
	f := NewHTTPFetcher(5*time.Second, "test-agent", logger)

	result, err := f.Fetch(context.Background(), srv.URL, models.FetchOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 403, result.StatusCode)
}

package marketplace

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	return NewClient(opts, logging.New(nil, "silent"))
}

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 3*ChunkSize+17)
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/plugins/42/download", r.URL.Path)
		assert.Equal(t, "1.2.0", r.URL.Query().Get("version"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write(payload)
	}), Options{Token: "secret"})

	dest := filepath.Join(t.TempDir(), "42_1.zip")
	n, err := c.Download(context.Background(), "42", "1.2.0", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownload_Empty(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), Options{})

	dest := filepath.Join(t.TempDir(), "empty.zip")
	_, err := c.Download(context.Background(), "42", "", dest)
	assert.True(t, errors.Is(err, ErrEmptyDownload))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_APIMessage(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success": false, "message": "plugin not purchased"}`))
	}), Options{})

	_, err := c.Download(context.Background(), "42", "1.2.0", filepath.Join(t.TempDir(), "x.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin not purchased")
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("PK"))
	}), Options{Retries: 2})
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond

	n, err := c.Download(context.Background(), "42", "", filepath.Join(t.TempDir(), "x.zip"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDownload_Timeout(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), Options{Timeout: 50 * time.Millisecond})

	_, err := c.Download(context.Background(), "42", "", filepath.Join(t.TempDir(), "x.zip"))
	assert.Error(t, err)
}

func TestCheckPermission(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/plugins/42/verify/1.2.0":
			w.Write([]byte(`{"success": true}`))
		case "/api/plugins/42/verify/2.0.0":
			w.Write([]byte(`{"success": false}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}), Options{Token: "t"})

	ok, err := c.CheckPermission(context.Background(), "42", "1.2.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CheckPermission(context.Background(), "42", "2.0.0")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.CheckPermission(context.Background(), "7", "1.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

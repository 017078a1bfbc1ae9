package binary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProgress struct {
	name     string
	total    int64
	added    int64
	finished bool
}

func (p *recordingProgress) Start(name string, total int64) { p.name, p.total = name, total }
func (p *recordingProgress) Add(n int64)                    { p.added += n }
func (p *recordingProgress) Finish()                        { p.finished = true }

func TestDownloader_Download(t *testing.T) {
	payload := strings.Repeat("x", 100<<10)
	var hits atomic.Int32
	var userAgent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	cache := t.TempDir()
	progress := &recordingProgress{}
	d := NewDownloader(cache, WithUserAgent("getrelease-test"), WithProgress(progress))
	url := srv.URL + "/download/v1/tool-linux-amd64.tar.gz"

	path, err := d.Download(context.Background(), url, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "tool-linux-amd64.tar.gz"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.Equal(t, "getrelease-test", userAgent.Load())

	assert.Equal(t, "tool-linux-amd64.tar.gz", progress.name)
	assert.Equal(t, int64(len(payload)), progress.total)
	assert.Equal(t, int64(len(payload)), progress.added)
	assert.True(t, progress.finished)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloader_ReuseAndForce(t *testing.T) {
	payload := "0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	cache := t.TempDir()
	d := NewDownloader(cache)
	url := srv.URL + "/tool"
	dest := d.CachePath(url)

	// same size, different content: reused
	require.NoError(t, os.WriteFile(dest, []byte("abcdefghij"), 0o644))
	_, err := d.Download(context.Background(), url, false)
	require.NoError(t, err)
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "abcdefghij", string(data))

	// forced: overwritten
	_, err = d.Download(context.Background(), url, true)
	require.NoError(t, err)
	data, _ = os.ReadFile(dest)
	assert.Equal(t, payload, string(data))

	// size mismatch: overwritten
	require.NoError(t, os.WriteFile(dest, []byte("short"), 0o644))
	_, err = d.Download(context.Background(), url, false)
	require.NoError(t, err)
	data, _ = os.ReadFile(dest)
	assert.Equal(t, payload, string(data))
}

func TestDownloader_Retries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir(), WithRetries(3, time.Millisecond))
	path, err := d.Download(context.Background(), srv.URL+"/tool", false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())

	data, _ := os.ReadFile(path)
	assert.Equal(t, "ok", string(data))
}

func TestDownloader_NoRetryOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir(), WithRetries(3, time.Millisecond))
	_, err := d.Download(context.Background(), srv.URL+"/tool", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(t.TempDir(), WithRetries(3, time.Hour))
	_, err := d.Download(ctx, srv.URL+"/tool", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("abc123  tool.tar.gz\n"))
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir())
	body, err := d.Fetch(context.Background(), srv.URL+"/checksums.txt", 1024)
	require.NoError(t, err)
	assert.Equal(t, "abc123  tool.tar.gz\n", string(body))

	_, err = d.Fetch(context.Background(), srv.URL+"/checksums.txt", 4)
	assert.ErrorContains(t, err, "exceeds")
}

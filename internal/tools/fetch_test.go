package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWritesFileAndReportsProgress(t *testing.T) {
	payload := []byte("archive-bytes-0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "tool.zip")
	var lastDone, lastTotal int64
	calls := 0
	err := NewFetcher().Fetch(context.Background(), srv.URL+"/tool.zip", dest, "", func(done, total int64) {
		calls++
		lastDone, lastTotal = done, total
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Positive(t, calls)
	assert.Equal(t, int64(len(payload)), lastDone)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestFetchOverwritesExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "tool.zip")
	require.NoError(t, os.WriteFile(dest, []byte("old contents"), 0o644))

	require.NoError(t, NewFetcher().Fetch(context.Background(), srv.URL, dest, "", nil))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "tool.zip")
	err := NewFetcher().Fetch(context.Background(), srv.URL, dest, "", nil)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srv.URL, fetchErr.URL)
	assert.NoFileExists(t, dest)
}

func TestFetchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewFetcher().Fetch(context.Background(), url, filepath.Join(t.TempDir(), "x"), "", nil)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetchChecksum(t *testing.T) {
	payload := []byte("pinned")
	sum := sha256.Sum256(payload)
	good := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, NewFetcher().Fetch(context.Background(), srv.URL, filepath.Join(dir, "ok"), good, nil))

	err := NewFetcher().Fetch(context.Background(), srv.URL, filepath.Join(dir, "bad"), "deadbeef", nil)
	var sumErr *ChecksumError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, good, sumErr.Actual)
	assert.NoFileExists(t, filepath.Join(dir, "bad"))
}

func TestArchiveName(t *testing.T) {
	name, err := ArchiveName("https://example.com/a/b/cmake-3.31.4-linux-x86_64.tar.gz?x=1")
	require.NoError(t, err)
	assert.Equal(t, "cmake-3.31.4-linux-x86_64.tar.gz", name)

	_, err = ArchiveName("https://example.com/")
	assert.Error(t, err)
}

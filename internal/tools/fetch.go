package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const defaultUserAgent = "pmk/1.0"

// ProgressFunc receives byte counts while a download streams. total is -1
// when the server does not announce a length.
type ProgressFunc func(done, total int64)

// Fetcher downloads archives over HTTP(S).
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a fetcher using the default HTTP client. No timeout is
// applied; callers bound the download with ctx.
func NewFetcher() *Fetcher {
	return &Fetcher{Client: http.DefaultClient, UserAgent: defaultUserAgent}
}

// Fetch streams rawURL into dest, replacing any existing file. When checksum
// is non-empty the downloaded bytes must hash to it. Every failure is
// returned as *FetchError or *ChecksumError; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest, checksum string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("prepare destination: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	hash := sha256.New()
	counter := &progressWriter{total: resp.ContentLength, report: progress}
	if counter.total <= 0 {
		counter.total = -1
	}
	if _, err := io.Copy(io.MultiWriter(tmpFile, hash, counter), resp.Body); err != nil {
		tmpFile.Close()
		return &FetchError{URL: rawURL, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmpFile.Close(); err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("close temp file: %w", err)}
	}

	if checksum != "" {
		actual := hex.EncodeToString(hash.Sum(nil))
		if !strings.EqualFold(actual, checksum) {
			return &ChecksumError{URL: rawURL, Expected: strings.ToLower(checksum), Actual: actual}
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("finalize download: %w", err)}
	}
	return nil
}

type progressWriter struct {
	done   int64
	total  int64
	report ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.done += int64(len(p))
	if w.report != nil {
		w.report(w.done, w.total)
	}
	return len(p), nil
}

// ArchiveName infers the archive file name from a download URL, ignoring any
// query string.
func ArchiveName(downloadURL string) (string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "" || base == "/" {
		return "", fmt.Errorf("infer archive name from url: %s", downloadURL)
	}
	return base, nil
}

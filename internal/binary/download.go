package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "getrelease/1.0"

	chunkSize    = 32 << 10
	maxRedirects = 10
)

var errTooLarge = errors.New("response too large")

// statusError is a non-200 HTTP response.
type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status code %d", e.url, e.code)
}

func (e *statusError) retryable() bool {
	return e.code >= http.StatusInternalServerError
}

// Downloader fetches release assets over HTTP with retry logic.
type Downloader struct {
	client    *http.Client
	cacheDir  string
	userAgent string
	retries   int
	backoff   time.Duration
	progress  Progress
	logger    logging.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// WithRetries sets how many times a failed attempt is repeated and the base
// backoff between attempts.
func WithRetries(n int, backoff time.Duration) DownloaderOption {
	return func(d *Downloader) {
		d.retries = n
		d.backoff = backoff
	}
}

// WithProgress reports streamed bytes to p.
func WithProgress(p Progress) DownloaderOption {
	return func(d *Downloader) {
		if p != nil {
			d.progress = p
		}
	}
}

// WithDownloadLogger sets the logger.
func WithDownloadLogger(l logging.Logger) DownloaderOption {
	return func(d *Downloader) { d.logger = logging.OrNop(l) }
}

// NewDownloader creates a downloader that caches assets under cacheDir.
func NewDownloader(cacheDir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cacheDir:  cacheDir,
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		backoff:   time.Second,
		progress:  noopProgress{},
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CachePath is where Download stores the asset at url.
func (d *Downloader) CachePath(url string) string {
	return filepath.Join(d.cacheDir, release.Filename(url))
}

// Download stores the asset at url in the cache directory and returns its
// path. An existing file whose size equals the advertised Content-Length is
// reused unless force is set.
func (d *Downloader) Download(ctx context.Context, url string, force bool) (string, error) {
	dest := d.CachePath(url)
	if err := d.DownloadToFile(ctx, url, dest, force); err != nil {
		return "", err
	}
	return dest, nil
}

// DownloadToFile downloads url to destPath.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string, force bool) error {
	err := d.retry(ctx, func() error {
		return d.downloadOnce(ctx, url, destPath, force)
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	return nil
}

// Fetch reads the body at url into memory, failing if it exceeds limit
// bytes.
func (d *Downloader) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	var body []byte
	err := d.retry(ctx, func() error {
		resp, err := d.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		if int64(len(body)) > limit {
			return fmt.Errorf("%s exceeds %d bytes: %w", url, limit, errTooLarge)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

func (d *Downloader) retry(ctx context.Context, attempt func() error) error {
	var lastErr error
	for i := 0; i <= d.retries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if i > 0 {
			// exponential backoff: 1x, 2x, 4x
			wait := d.backoff * time.Duration(1<<uint(i-1))
			d.logger.Debug("retrying download", "attempt", i, "wait", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		var se *statusError
		if errors.Is(err, errTooLarge) || (errors.As(err, &se) && !se.retryable()) {
			return err
		}
	}
	return fmt.Errorf("failed after %d retries: %w", d.retries, lastErr)
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &statusError{url: url, code: resp.StatusCode}
	}
	return resp, nil
}

func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string, force bool) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !force && resp.ContentLength >= 0 {
		if info, err := os.Stat(destPath); err == nil && info.Mode().IsRegular() && info.Size() == resp.ContentLength {
			d.logger.Info("using cached asset", "path", destPath)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	d.progress.Start(filepath.Base(destPath), resp.ContentLength)
	defer d.progress.Finish()

	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := tmpFile.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write temp file: %w", werr)
			}
			d.progress.Add(int64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("copy response body: %w", rerr)
		}
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	cleanupNeeded = false

	d.logger.Info("downloaded asset", "url", url, "path", destPath)
	return nil
}

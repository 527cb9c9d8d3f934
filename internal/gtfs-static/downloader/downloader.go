package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/diamant-gtfs/internal/common/logger"
)

type HTTPDownloader struct {
	client *http.Client
	logger logger.Logger
}

func NewHTTPDownloader(logger logger.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// IsURL reports whether source names an http(s) feed rather than a local path.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch resolves source to a local path. Local paths are returned as is;
// URLs are downloaded into a fresh directory under dir (the system temp dir
// when empty) and the returned cleanup removes it. On error nothing is left
// behind.
func (d *HTTPDownloader) Fetch(ctx context.Context, source, dir string) (string, func(), error) {
	if !IsURL(source) {
		return source, func() {}, nil
	}
	if dir == "" {
		dir = os.TempDir()
	}

	tmpDir, err := os.MkdirTemp(dir, "gtfs_feed_*")
	if err != nil {
		return "", nil, fmt.Errorf("creating download directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	dest := filepath.Join(tmpDir, "gtfs.zip")
	if err := d.fetchURL(ctx, source, dest); err != nil {
		cleanup()
		return "", nil, err
	}
	return dest, cleanup, nil
}

func (d *HTTPDownloader) fetchURL(ctx context.Context, source, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	d.logger.Info("Downloading feed", "url", source)
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", source, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	progress := &progressWriter{w: f, total: resp.ContentLength, logger: d.logger, last: time.Now()}
	if _, err := io.Copy(progress, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("downloading %s: %w", source, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}

	d.logger.Info("Feed downloaded", "url", source, "size_bytes", progress.written)
	return nil
}

// progressWriter logs download progress at most every progressInterval.
type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	last    time.Time
	logger  logger.Logger
}

const progressInterval = 5 * time.Second

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.total > 0 && time.Since(p.last) > progressInterval {
		p.logger.Debug("Download progress",
			"percent", fmt.Sprintf("%.1f", float64(p.written)/float64(p.total)*100),
			"bytes", p.written,
			"total_bytes", p.total)
		p.last = time.Now()
	}
	return n, err
}

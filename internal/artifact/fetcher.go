package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher retrieves one model artifact into destDir. Implementations write
// only inside destDir; the cache stages and renames around them.
type Fetcher interface {
	Fetch(ctx context.Context, id, destDir string) error
}

// HTTPFetcher downloads artifacts with a plain GET of <base>/<id>. It
// retries transient failures and gives up immediately on 4xx responses.
type HTTPFetcher struct {
	BaseURL string
	Token   string
	Retries int
	Client  *http.Client
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *HTTPFetcher) retries() int {
	if f.Retries <= 0 {
		return 3
	}
	return f.Retries
}

func (f *HTTPFetcher) Fetch(ctx context.Context, id, destDir string) error {
	if f.BaseURL == "" {
		return fmt.Errorf("no artifact source configured (fetch_base_url)")
	}
	src := strings.TrimRight(f.BaseURL, "/") + "/" + escapeID(id)

	var lastErr error
	for attempt := 1; attempt <= f.retries(); attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		retryable, err := f.fetchOnce(ctx, src, destDir)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, src, destDir string) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return false, err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, fmt.Errorf("artifact source returned %s", resp.Status)
	default:
		return true, fmt.Errorf("artifact source returned %s", resp.Status)
	}

	tmp, err := os.CreateTemp(destDir, "download-*")
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return true, err
	}
	if err = tmp.Close(); err != nil {
		return false, err
	}
	return false, os.Rename(tmp.Name(), filepath.Join(destDir, "model.bin"))
}

// escapeID keeps id slashes as URL path separators while escaping each
// segment.
func escapeID(id string) string {
	segs := strings.Split(id, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

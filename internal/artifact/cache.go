// Package artifact owns the on-disk model cache: one directory per model
// id, at most one physical transfer per id no matter how many callers ask
// for it, and a bounded number of transfers in flight at once.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"inferd/internal/common/fsutil"
)

// Cache maps model ids to local artifact directories and downloads what is
// missing through its Fetcher.
type Cache struct {
	dir     string
	fetcher Fetcher
	sem     *semaphore.Weighted
	log     zerolog.Logger

	mu       sync.Mutex
	inflight map[string]*fetchState

	fetchesTotal atomic.Uint64
}

// fetchState is the shared future for one in-flight transfer. err is only
// read after done is closed.
type fetchState struct {
	done chan struct{}
	err  error
}

// NewCache creates the cache directory if needed. workers bounds how many
// transfers run concurrently; waiters beyond that queue on the semaphore.
func NewCache(dir string, fetcher Fetcher, workers int, log zerolog.Logger) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact cache dir is empty")
	}
	if workers <= 0 {
		workers = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:      dir,
		fetcher:  fetcher,
		sem:      semaphore.NewWeighted(int64(workers)),
		log:      log,
		inflight: make(map[string]*fetchState),
	}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Ready reports whether the cache root is still reachable.
func (c *Cache) Ready() bool {
	info, err := os.Stat(c.dir)
	return err == nil && info.IsDir()
}

// PathFor returns the local directory an id maps to. Slashes in ids become
// "--" so hub-style ids stay single path segments.
func (c *Cache) PathFor(id string) string {
	return filepath.Join(c.dir, sanitizeID(id))
}

// IsPresent reports whether the artifact is fully cached: the directory
// exists and holds at least one file.
func (c *Cache) IsPresent(id string) bool {
	return fsutil.DirNonEmpty(c.PathFor(id))
}

// Ensure returns the local path of the artifact, downloading it first when
// missing. Concurrent calls for the same id share one transfer: the first
// caller fetches, the rest block until it finishes and then re-check disk.
func (c *Cache) Ensure(ctx context.Context, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	dest := c.PathFor(id)
	if fsutil.DirNonEmpty(dest) {
		return dest, nil
	}

	c.mu.Lock()
	if st, ok := c.inflight[id]; ok {
		c.mu.Unlock()
		select {
		case <-st.done:
		case <-ctx.Done():
			return "", ErrFetch(id, ctx.Err())
		}
		// The winner may have failed after a partial write; trust disk,
		// not just the recorded error.
		if fsutil.DirNonEmpty(dest) {
			return dest, nil
		}
		if st.err != nil {
			return "", st.err
		}
		return "", ErrFetch(id, fmt.Errorf("artifact missing after download"))
	}
	st := &fetchState{done: make(chan struct{})}
	c.inflight[id] = st
	c.mu.Unlock()

	st.err = c.fetch(ctx, id, dest)

	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
	close(st.done)

	if st.err != nil {
		return "", st.err
	}
	return dest, nil
}

// fetch performs the bounded transfer into a staging dir, then renames it
// into place so presence checks never observe half-written artifacts.
func (c *Cache) fetch(ctx context.Context, id, dest string) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return ErrFetch(id, err)
	}
	defer c.sem.Release(1)

	// A racing call may have completed while this one queued.
	if fsutil.DirNonEmpty(dest) {
		return nil
	}

	staging := dest + ".partial"
	_ = os.RemoveAll(staging)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return ErrFetch(id, err)
	}

	start := time.Now()
	c.log.Info().Str("model", id).Msg("artifact download starting")
	if err := c.fetcher.Fetch(ctx, id, staging); err != nil {
		_ = os.RemoveAll(staging)
		c.log.Warn().Str("model", id).Err(err).Msg("artifact download failed")
		return ErrFetch(id, err)
	}
	if !fsutil.DirNonEmpty(staging) {
		_ = os.RemoveAll(staging)
		return ErrFetch(id, fmt.Errorf("fetcher produced no files"))
	}
	_ = os.RemoveAll(dest)
	if err := os.Rename(staging, dest); err != nil {
		_ = os.RemoveAll(staging)
		return ErrFetch(id, err)
	}
	c.fetchesTotal.Add(1)
	c.log.Info().
		Str("model", id).
		Dur("elapsed", time.Since(start)).
		Int64("bytes", fsutil.DirSizeBytes(dest)).
		Msg("artifact cached")
	return nil
}

// ListPresent scans the cache root for completed artifacts, ids ascending.
func (c *Cache) ListPresent() []string {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasSuffix(e.Name(), ".partial") {
			continue
		}
		if !fsutil.DirNonEmpty(filepath.Join(c.dir, e.Name())) {
			continue
		}
		ids = append(ids, unsanitizeID(e.Name()))
	}
	sort.Strings(ids)
	return ids
}

// ActiveFetches lists ids with a transfer in flight, ids ascending.
func (c *Cache) ActiveFetches() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.inflight))
	for id := range c.inflight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FetchesTotal counts completed downloads since startup.
func (c *Cache) FetchesTotal() uint64 { return c.fetchesTotal.Load() }

func sanitizeID(id string) string { return strings.ReplaceAll(id, "/", "--") }

func unsanitizeID(name string) string { return strings.ReplaceAll(name, "--", "/") }

// ValidateID rejects ids that would escape the cache root or collide with
// staging directories.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID(id, "empty")
	}
	if strings.ContainsAny(id, "\\\x00") {
		return ErrInvalidID(id, "forbidden characters")
	}
	if strings.HasPrefix(id, "/") || strings.HasSuffix(id, "/") {
		return ErrInvalidID(id, "leading or trailing slash")
	}
	for _, seg := range strings.Split(id, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidID(id, "path traversal")
		}
	}
	if strings.HasSuffix(id, ".partial") {
		return ErrInvalidID(id, "reserved suffix")
	}
	return nil
}

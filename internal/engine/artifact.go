package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"inferd/internal/common/fsutil"
)

// artifactFootprintMB measures the artifact at path (a cache directory or
// a single weights file) with a 1 MB floor, so even tiny artifacts occupy
// a visible slice of the budget.
func artifactFootprintMB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	var bytes int64
	if info.IsDir() {
		if !fsutil.DirNonEmpty(path) {
			return 0, fmt.Errorf("artifact dir %s is empty", path)
		}
		bytes = fsutil.DirSizeBytes(path)
	} else {
		bytes = info.Size()
	}
	mb := float64(bytes) / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return mb, nil
}

// weightsFile resolves the file a backend should open: the path itself
// when it is a file, otherwise the largest regular file in the directory.
func weightsFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if fi.Size() > bestSize {
			best = filepath.Join(path, e.Name())
			bestSize = fi.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no weights file in %s", path)
	}
	return best, nil
}

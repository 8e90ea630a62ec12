package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"inferd/internal/artifact"
	"inferd/internal/gpu"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/vram"
)

// newArtifactSource serves sizeMB of deterministic bytes for any model id,
// standing in for a model hub. Ids containing "missing" get a 404 so fetch
// failure paths can be driven from the outside.
func newArtifactSource(t *testing.T, sizeMB int) *httptest.Server {
	t.Helper()
	blob := bytes.Repeat([]byte("w"), sizeMB<<20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(blob)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// stackOptions tune the budget for a test stack. Zero values take the
// production defaults.
type stackOptions struct {
	fallbackMB        float64
	defaultEstimateMB float64
}

// newStack wires the full service over a temp cache dir and the given
// artifact source, mirroring the composition in cmd/inferd.
func newStack(t *testing.T, srcURL string, opts stackOptions) (*httptest.Server, *manager.Manager) {
	t.Helper()
	log := zerolog.Nop()
	fetcher := &artifact.HTTPFetcher{BaseURL: srcURL, Retries: 1}
	cache, err := artifact.NewCache(t.TempDir(), fetcher, 2, log)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	device := gpu.Null{}
	tracker := vram.New(device, opts.fallbackMB, 0.9, log)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Cache:             cache,
		Tracker:           tracker,
		Device:            device,
		DefaultEstimateMB: opts.defaultEstimateMB,
		Publisher:         httpapi.NewEventsCollector(),
		Logger:            log,
	})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpDelete(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

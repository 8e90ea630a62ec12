package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/artifact"
	"inferd/internal/engine"
	"inferd/internal/gpu"
	"inferd/internal/vram"
	"inferd/pkg/types"
)

// fakeFetcher writes a fixed-size weights file and counts transfers.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	size    int
	failErr error
}

func (f *fakeFetcher) Fetch(_ context.Context, id, destDir string) error {
	f.mu.Lock()
	f.calls++
	size := f.size
	failErr := f.failErr
	f.mu.Unlock()
	if failErr != nil {
		return failErr
	}
	if size <= 0 {
		size = 1024
	}
	return os.WriteFile(filepath.Join(destDir, "model.bin"), make([]byte, size), 0o644)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) setFailErr(err error) {
	f.mu.Lock()
	f.failErr = err
	f.mu.Unlock()
}

// fakeEngine stands in for a real runtime: configurable footprint, load
// failures, and a gate to hold a load mid-flight.
type fakeEngine struct {
	id          string
	footprint   float64
	loadErr     error
	inferResult any
	inferErr    error

	loadStarted chan struct{}
	loadGate    chan struct{}

	mu      sync.Mutex
	loaded  bool
	loads   int
	unloads int
}

func (e *fakeEngine) Load(string) error {
	e.mu.Lock()
	e.loads++
	started := e.loadStarted
	e.loadStarted = nil
	gate := e.loadGate
	loadErr := e.loadErr
	e.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if loadErr != nil {
		return engine.ErrLoad(e.id, loadErr)
	}
	e.mu.Lock()
	e.loaded = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Unload() {
	e.mu.Lock()
	e.loaded = false
	e.unloads++
	e.mu.Unlock()
}

func (e *fakeEngine) Infer(ctx context.Context, input any, _ map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.ErrInfer(e.id, err)
	}
	e.mu.Lock()
	loaded := e.loaded
	inferErr := e.inferErr
	result := e.inferResult
	e.mu.Unlock()
	if !loaded {
		return nil, engine.ErrInfer(e.id, context.Canceled)
	}
	if inferErr != nil {
		return nil, engine.ErrInfer(e.id, inferErr)
	}
	if result != nil {
		return result, nil
	}
	return map[string]any{"echo": input}, nil
}

func (e *fakeEngine) MemoryFootprintMB() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return 0
	}
	return e.footprint
}

func (e *fakeEngine) counts() (loads, unloads int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads, e.unloads
}

// engineFleet hands one prepared fakeEngine per model id to the manager's
// factory hook and remembers every engine it built.
type engineFleet struct {
	mu       sync.Mutex
	prepared map[string]*fakeEngine
}

func newEngineFleet() *engineFleet {
	return &engineFleet{prepared: make(map[string]*fakeEngine)}
}

// prepare fixes the engine returned for id. Ids without one get a 1024 MB
// engine on demand.
func (f *engineFleet) prepare(id string, e *fakeEngine) *fakeEngine {
	e.id = id
	f.mu.Lock()
	f.prepared[id] = e
	f.mu.Unlock()
	return e
}

func (f *engineFleet) factory(task types.TaskType, id string, _ engine.Options) (engine.Engine, error) {
	if task == types.TaskVideo {
		return nil, engine.ErrUnsupportedTask(task)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.prepared[id]
	if !ok {
		e = &fakeEngine{id: id, footprint: 1024}
		f.prepared[id] = e
	}
	return e, nil
}

func (f *engineFleet) totalLoads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, e := range f.prepared {
		loads, _ := e.counts()
		total += loads
	}
	return total
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testRig bundles a manager with every fake it is wired to.
type testRig struct {
	m       *Manager
	cache   *artifact.Cache
	tracker *vram.Tracker
	fetcher *fakeFetcher
	fleet   *engineFleet
	pub     *MemoryPublisher
	clock   *fakeClock
}

func newTestRig(t *testing.T, cfg ManagerConfig) *testRig {
	t.Helper()
	fetcher := &fakeFetcher{}
	cache, err := artifact.NewCache(t.TempDir(), fetcher, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	tracker := vram.New(gpu.Null{}, 8192, 0.9, zerolog.Nop())
	fleet := newEngineFleet()
	pub := NewMemoryPublisher()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}

	cfg.Cache = cache
	cfg.Tracker = tracker
	cfg.Device = gpu.Null{}
	cfg.Publisher = pub
	m := NewWithConfig(cfg)
	m.newEngine = fleet.factory
	m.now = clock.Now

	return &testRig{m: m, cache: cache, tracker: tracker, fetcher: fetcher, fleet: fleet, pub: pub, clock: clock}
}

// seedArtifact places a cached artifact on disk without a download.
func (r *testRig) seedArtifact(t *testing.T, id string) {
	t.Helper()
	dir := r.cache.PathFor(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.bin"), make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// statusFor finds one row in StatusAll.
func (r *testRig) statusFor(t *testing.T, id string) types.ModelStatus {
	t.Helper()
	for _, st := range r.m.StatusAll() {
		if st.ModelID == id {
			return st
		}
	}
	t.Fatalf("model %s not in status", id)
	return types.ModelStatus{}
}

func (r *testRig) hasStatus(id string) bool {
	for _, st := range r.m.StatusAll() {
		if st.ModelID == id {
			return true
		}
	}
	return false
}

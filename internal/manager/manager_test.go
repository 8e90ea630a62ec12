package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/artifact"
	"inferd/internal/engine"
	"inferd/internal/gpu"
	"inferd/internal/vram"
	"inferd/pkg/types"
)

func TestRequestLoadDownloadsAndLoads(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	if err := r.m.RequestLoad(context.Background(), "org/m1", types.TaskText, false); err != nil {
		t.Fatalf("request load: %v", err)
	}
	if got := r.fetcher.callCount(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	st := r.statusFor(t, "org/m1")
	if st.State != types.StateLoaded {
		t.Fatalf("state = %s, want loaded", st.State)
	}
	if st.VRAMMB != 1024 {
		t.Fatalf("footprint = %v, want engine-reported 1024", st.VRAMMB)
	}
	if st.LastUsed == 0 {
		t.Fatalf("last used not set on load")
	}
	names := r.pub.Names()
	want := []string{"download_start", "download_done", "load_start", "load_ready"}
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("events = %v, want %v", names, want)
		}
	}
}

func TestRequestLoadFastPathSkipsWork(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	ctx := context.Background()
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	r.clock.Advance(time.Minute)
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if got := r.fleet.totalLoads(); got != 1 {
		t.Fatalf("engine loads = %d, want 1 (second call is a no-op)", got)
	}
	if got := r.fetcher.callCount(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	st := r.statusFor(t, "m")
	if st.LastUsed != r.clock.Now().Unix() {
		t.Fatalf("fast path must refresh last_used: %d != %d", st.LastUsed, r.clock.Now().Unix())
	}
}

func TestConcurrentSameModelLoadsOnce(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	started := make(chan struct{})
	gate := make(chan struct{})
	r.fleet.prepare("m", &fakeEngine{footprint: 512, loadStarted: started, loadGate: gate})

	errs := make(chan error, 2)
	go func() { errs <- r.m.RequestLoad(context.Background(), "m", types.TaskText, false) }()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("load never started")
	}
	go func() { errs <- r.m.RequestLoad(context.Background(), "m", types.TaskText, false) }()

	close(gate)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if got := r.fleet.totalLoads(); got != 1 {
		t.Fatalf("engine loads = %d, want 1", got)
	}
	if got := r.m.LoadsTotal(); got != 1 {
		t.Fatalf("registrations = %d, want 1", got)
	}
}

func TestForceReloadReleasesEvenWhenReloadFails(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	eng := r.fleet.prepare("m", &fakeEngine{footprint: 512})
	ctx := context.Background()
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	eng.mu.Lock()
	eng.loadErr = errors.New("weights corrupted")
	eng.mu.Unlock()
	err := r.m.RequestLoad(ctx, "m", types.TaskText, true)
	if !engine.IsLoadError(err) {
		t.Fatalf("expected load error, got %v", err)
	}
	// The release must have happened before the failed reload.
	if _, unloads := eng.counts(); unloads != 1 {
		t.Fatalf("unloads = %d, want 1", unloads)
	}
	if got := r.tracker.TrackedMB(); got != 0 {
		t.Fatalf("tracked = %v after failed force reload, want 0", got)
	}
	if st := r.statusFor(t, "m"); st.State != types.StateFailed {
		t.Fatalf("state = %s, want failed", st.State)
	}

	// Failure is not terminal: the next request retries and succeeds.
	eng.mu.Lock()
	eng.loadErr = nil
	eng.mu.Unlock()
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if st := r.statusFor(t, "m"); st.State != types.StateLoaded {
		t.Fatalf("state = %s, want loaded after retry", st.State)
	}
}

func TestEvictionMakesRoomForLargeModel(t *testing.T) {
	// Budget is 8192 * 0.9 = 7372.8 MB. m1 occupies 2048; admitting m2's
	// 7168 MB estimate forces m1 out.
	r := newTestRig(t, ManagerConfig{
		EstimateMB: map[types.TaskType]float64{types.TaskText: 7168},
	})
	m1 := r.fleet.prepare("m1", &fakeEngine{footprint: 2048})
	r.fleet.prepare("m2", &fakeEngine{footprint: 7000})
	ctx := context.Background()

	if err := r.m.RequestLoad(ctx, "m1", types.TaskText, false); err != nil {
		t.Fatalf("load m1: %v", err)
	}
	r.clock.Advance(time.Second)
	if err := r.m.RequestLoad(ctx, "m2", types.TaskText, false); err != nil {
		t.Fatalf("load m2: %v", err)
	}

	if st := r.statusFor(t, "m1"); st.State != types.StateOnDisk || st.VRAMMB != 0 {
		t.Fatalf("m1 after eviction: %+v", st)
	}
	if st := r.statusFor(t, "m2"); st.State != types.StateLoaded {
		t.Fatalf("m2: %+v", st)
	}
	if _, unloads := m1.counts(); unloads != 1 {
		t.Fatalf("m1 unloads = %d, want 1", unloads)
	}
	if got := r.m.EvictionsTotal(); got != 1 {
		t.Fatalf("evictions = %d, want 1", got)
	}
}

func TestCapacityExhaustedFailsRequest(t *testing.T) {
	r := newTestRig(t, ManagerConfig{DefaultEstimateMB: 10000})
	err := r.m.RequestLoad(context.Background(), "huge", types.TaskText, false)
	if !vram.IsCapacityError(err) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	_, available, ok := vram.CapacityDetails(err)
	if !ok || available < 0 {
		t.Fatalf("available = %v, must be clamped at zero", available)
	}
	if st := r.statusFor(t, "huge"); st.State != types.StateFailed {
		t.Fatalf("state = %s, want failed", st.State)
	}
}

func TestTaskKindIsImmutable(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	ctx := context.Background()
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	err := r.m.RequestLoad(ctx, "m", types.TaskImage, false)
	if !IsTaskMismatch(err) {
		t.Fatalf("expected task mismatch, got %v", err)
	}
	if _, err := r.m.Infer(ctx, "m", types.TaskImage, "x", nil, false); !IsTaskMismatch(err) {
		t.Fatalf("expected task mismatch from infer, got %v", err)
	}
}

func TestUnsupportedTaskFailsBeforeFetch(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	err := r.m.RequestLoad(context.Background(), "vid", types.TaskVideo, false)
	if !engine.IsUnsupportedTask(err) {
		t.Fatalf("expected unsupported-task error, got %v", err)
	}
	if got := r.fetcher.callCount(); got != 0 {
		t.Fatalf("fetch calls = %d, unsupported task must not touch the network", got)
	}
	if r.hasStatus("vid") {
		t.Fatalf("unsupported task created a registry record")
	}
}

func TestInvalidIDRejected(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	err := r.m.RequestLoad(context.Background(), "../escape", types.TaskText, false)
	if !artifact.IsInvalidID(err) {
		t.Fatalf("expected invalid-id error, got %v", err)
	}
}

func TestDownloadFailureIsRetryable(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	r.fetcher.setFailErr(errors.New("connection reset"))
	ctx := context.Background()

	err := r.m.RequestLoad(ctx, "m", types.TaskText, false)
	if !artifact.IsFetchError(err) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if st := r.statusFor(t, "m"); st.State != types.StateFailed {
		t.Fatalf("state = %s, want failed", st.State)
	}

	r.fetcher.setFailErr(nil)
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("retry after download failure: %v", err)
	}
	if st := r.statusFor(t, "m"); st.State != types.StateLoaded {
		t.Fatalf("state = %s, want loaded", st.State)
	}
}

func TestInferRefreshesLRU(t *testing.T) {
	r := newTestRig(t, ManagerConfig{
		EstimateMB: map[types.TaskType]float64{types.TaskText: 3000},
	})
	r.fleet.prepare("a", &fakeEngine{footprint: 3000})
	r.fleet.prepare("b", &fakeEngine{footprint: 3000})
	r.fleet.prepare("c", &fakeEngine{footprint: 3000})
	ctx := context.Background()

	if err := r.m.RequestLoad(ctx, "a", types.TaskText, false); err != nil {
		t.Fatalf("load a: %v", err)
	}
	r.clock.Advance(time.Second)
	if err := r.m.RequestLoad(ctx, "b", types.TaskText, false); err != nil {
		t.Fatalf("load b: %v", err)
	}
	r.clock.Advance(time.Second)
	// a becomes most recently used, so b is the LRU victim for c.
	if _, err := r.m.Infer(ctx, "a", types.TaskText, "hi", nil, false); err != nil {
		t.Fatalf("infer a: %v", err)
	}
	r.clock.Advance(time.Second)
	if err := r.m.RequestLoad(ctx, "c", types.TaskText, false); err != nil {
		t.Fatalf("load c: %v", err)
	}

	if st := r.statusFor(t, "a"); st.State != types.StateLoaded {
		t.Fatalf("a = %s, want loaded", st.State)
	}
	if st := r.statusFor(t, "b"); st.State != types.StateOnDisk {
		t.Fatalf("b = %s, want on_disk (evicted)", st.State)
	}
}

func TestInferReturnsEngineResult(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	r.fleet.prepare("m", &fakeEngine{footprint: 100, inferResult: map[string]any{"generated_text": "ok"}})
	res, err := r.m.Infer(context.Background(), "m", types.TaskText, "prompt", nil, false)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	m, ok := res.(map[string]any)
	if !ok || m["generated_text"] != "ok" {
		t.Fatalf("result = %v", res)
	}
}

func TestInferFailureKeepsModelLoaded(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	eng := r.fleet.prepare("m", &fakeEngine{footprint: 100})
	ctx := context.Background()
	if err := r.m.RequestLoad(ctx, "m", types.TaskText, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	eng.mu.Lock()
	eng.inferErr = errors.New("bad input tensor")
	eng.mu.Unlock()
	if _, err := r.m.Infer(ctx, "m", types.TaskText, "x", nil, false); !engine.IsInferError(err) {
		t.Fatalf("expected infer error, got %v", err)
	}
	if st := r.statusFor(t, "m"); st.State != types.StateLoaded {
		t.Fatalf("state = %s, inference failure must not unload", st.State)
	}
}

func TestStatusMergesDiskOnlyArtifacts(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	r.seedArtifact(t, "org/on-disk-only")
	if err := r.m.RequestLoad(context.Background(), "loaded-one", types.TaskText, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	all := r.m.StatusAll()
	if len(all) != 2 {
		t.Fatalf("status rows = %d, want 2: %+v", len(all), all)
	}
	// sorted by id: loaded-one < org/on-disk-only
	if all[0].ModelID != "loaded-one" || all[1].ModelID != "org/on-disk-only" {
		t.Fatalf("order = %s, %s", all[0].ModelID, all[1].ModelID)
	}
	disk := all[1]
	if disk.State != types.StateOnDisk || disk.TaskType != "" || disk.VRAMMB != 0 || disk.LastUsed != 0 {
		t.Fatalf("disk-only row = %+v", disk)
	}
}

func TestPurgeAllReleasesAndResets(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	e1 := r.fleet.prepare("m1", &fakeEngine{footprint: 100})
	e2 := r.fleet.prepare("m2", &fakeEngine{footprint: 100})
	ctx := context.Background()
	for _, id := range []string{"m1", "m2"} {
		if err := r.m.RequestLoad(ctx, id, types.TaskText, false); err != nil {
			t.Fatalf("load %s: %v", id, err)
		}
	}

	if got := r.m.PurgeAll(); got != 2 {
		t.Fatalf("purged = %d, want 2", got)
	}
	if _, u := e1.counts(); u != 1 {
		t.Fatalf("m1 unloads = %d", u)
	}
	if _, u := e2.counts(); u != 1 {
		t.Fatalf("m2 unloads = %d", u)
	}
	if got := r.tracker.TrackedMB(); got != 0 {
		t.Fatalf("tracked = %v after purge", got)
	}
	// disk artifacts survive and reappear via the merge
	for _, id := range []string{"m1", "m2"} {
		if st := r.statusFor(t, id); st.State != types.StateOnDisk {
			t.Fatalf("%s = %s, want on_disk", id, st.State)
		}
	}
	// purge is idempotent
	if got := r.m.PurgeAll(); got != 0 {
		t.Fatalf("second purge = %d, want 0", got)
	}
}

func TestPurgeDuringLoadReinsertsRecord(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	started := make(chan struct{})
	gate := make(chan struct{})
	r.fleet.prepare("m", &fakeEngine{footprint: 256, loadStarted: started, loadGate: gate})

	done := make(chan error, 1)
	go func() { done <- r.m.RequestLoad(context.Background(), "m", types.TaskText, false) }()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("load never started")
	}

	r.m.PurgeAll()
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := r.statusFor(t, "m"); st.State != types.StateLoaded {
		t.Fatalf("state = %s, the finished load must win the slot back", st.State)
	}
	if got := r.tracker.TrackedMB(); got != 256 {
		t.Fatalf("tracked = %v, want 256", got)
	}
}

func TestFetchDoesNotCreateRecord(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	path, err := r.m.Fetch(context.Background(), "warm/me")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if path != r.cache.PathFor("warm/me") {
		t.Fatalf("path = %q", path)
	}
	st := r.statusFor(t, "warm/me")
	if st.State != types.StateOnDisk || st.TaskType != "" {
		t.Fatalf("pre-fetched artifact row = %+v", st)
	}
}

func TestStatusResponseFields(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	if err := r.m.RequestLoad(context.Background(), "m", types.TaskText, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	resp := r.m.Status()
	if len(resp.Models) != 1 || resp.Models[0].ModelID != "m" {
		t.Fatalf("models = %+v", resp.Models)
	}
	if resp.LoadsTotal != 1 {
		t.Fatalf("loads total = %d", resp.LoadsTotal)
	}
	if resp.ServerTimeUnix != r.clock.Now().Unix() {
		t.Fatalf("server time = %d", resp.ServerTimeUnix)
	}
	if resp.VRAMUsagePercent != 0 {
		t.Fatalf("usage percent = %v, want 0 with no observable device", resp.VRAMUsagePercent)
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	m := New(nil, vram.New(gpu.Null{}, 0, 0, zerolog.Nop()), nil)
	if m.defaultEstimateMB != defaultEstimateMB {
		t.Fatalf("default estimate = %v", m.defaultEstimateMB)
	}
	if m.estimateFor(types.TaskText) != defaultEstimateMB {
		t.Fatalf("estimateFor without overrides = %v", m.estimateFor(types.TaskText))
	}
	if _, ok := m.publisher.(noopPublisher); !ok {
		t.Fatalf("publisher default = %T", m.publisher)
	}
	if m.device == nil {
		t.Fatalf("device must default to the null device")
	}
}

func TestSetEventPublisherNilResetsNoop(t *testing.T) {
	r := newTestRig(t, ManagerConfig{})
	r.m.SetEventPublisher(nil)
	if _, ok := r.m.publisher.(noopPublisher); !ok {
		t.Fatalf("publisher = %T, want noop", r.m.publisher)
	}
}

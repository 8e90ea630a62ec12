package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/artifact"
	"inferd/internal/engine"
	"inferd/internal/gpu"
	"inferd/internal/vram"
	"inferd/pkg/types"
)

// Manager is safe for concurrent use. regMu guards the records map and all
// record fields; it is held only for bookkeeping, never across downloads,
// loads, or inference.
type Manager struct {
	cache   *artifact.Cache
	tracker *vram.Tracker
	device  gpu.Device

	defaultEstimateMB float64
	estimates         map[types.TaskType]float64
	engineOpts        engine.Options

	// newEngine is swappable in tests.
	newEngine func(types.TaskType, string, engine.Options) (engine.Engine, error)
	now       func() time.Time

	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time

	regMu   sync.RWMutex
	records map[string]*ModelRecord
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Cache   *artifact.Cache
	Tracker *vram.Tracker
	Device  gpu.Device
	// DefaultEstimateMB is charged against the budget before a load when
	// the task kind has no entry in EstimateMB.
	DefaultEstimateMB float64
	// EstimateMB overrides the pre-load estimate per task kind.
	EstimateMB map[types.TaskType]float64
	// Engine carries backend tuning shared by all engines.
	Engine engine.Options
	// Publisher receives lifecycle events; nil means drop them.
	Publisher EventPublisher
	Logger    zerolog.Logger
}

const defaultEstimateMB = 2048

// New constructs a Manager with default estimates and no publisher.
func New(cache *artifact.Cache, tracker *vram.Tracker, device gpu.Device) *Manager {
	return NewWithConfig(ManagerConfig{Cache: cache, Tracker: tracker, Device: device})
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		cache:             cfg.Cache,
		tracker:           cfg.Tracker,
		device:            cfg.Device,
		defaultEstimateMB: cfg.DefaultEstimateMB,
		estimates:         cfg.EstimateMB,
		engineOpts:        cfg.Engine,
		newEngine:         engine.New,
		now:               time.Now,
		publisher:         cfg.Publisher,
		log:               cfg.Logger,
		startTime:         time.Now(),
		records:           make(map[string]*ModelRecord),
	}
	if m.device == nil {
		m.device = gpu.Null{}
	}
	if m.defaultEstimateMB <= 0 {
		m.defaultEstimateMB = defaultEstimateMB
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}

// SetEventPublisher swaps the event sink; nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// Device exposes the compute device for health reporting.
func (m *Manager) Device() gpu.Device { return m.device }

// DeviceName reports which device inference runs on.
func (m *Manager) DeviceName() string { return m.device.Name() }

// Ready reports whether the service can take work. Models load lazily, so
// readiness only requires the artifact cache root to be reachable.
func (m *Manager) Ready() bool { return m.cache != nil && m.cache.Ready() }

// UsagePercent reports device memory usage over real capacity, zero when
// the device cannot report one.
func (m *Manager) UsagePercent() float64 { return m.tracker.UsagePercent() }

// ActiveFetches lists model ids with a download in flight.
func (m *Manager) ActiveFetches() []string { return m.cache.ActiveFetches() }

// Counters for the status endpoint.
func (m *Manager) EvictionsTotal() uint64 { return m.tracker.EvictionsTotal() }
func (m *Manager) LoadsTotal() uint64     { return m.tracker.LoadsTotal() }
func (m *Manager) FetchesTotal() uint64   { return m.cache.FetchesTotal() }

// LoadedCount reports how many models are resident right now.
func (m *Manager) LoadedCount() int { return len(m.tracker.Loaded()) }

// estimateFor returns the pre-load admission estimate for a task kind.
func (m *Manager) estimateFor(task types.TaskType) float64 {
	if mb, ok := m.estimates[task]; ok && mb > 0 {
		return mb
	}
	return m.defaultEstimateMB
}

// Package manager coordinates model lifecycle, VRAM admission, and execution.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, ManagerConfig, NewWithConfig defaults,
//     and counters.
//   - record.go: ModelRecord, the per-model registry entry and its state.
//   - load.go: the load pipeline (validate, fetch, admit, load) behind
//     per-record serialization.
//   - infer.go: Infer entry point; loads on demand then runs the engine.
//   - fetch.go: cache pre-warm without loading.
//   - purge.go: PurgeAll, releasing every loaded model.
//   - status_report.go: Status snapshot, merging registry records with
//     disk-only artifacts.
//   - events.go: Event and EventPublisher; eventpub_memory.go holds the
//     in-memory publisher used by tests.
//   - errors.go: the task mismatch error and its ErrTaskMismatch/IsTaskMismatch
//     helpers. Capacity and fetch errors come from the vram and artifact
//     packages and pass through unchanged.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (NewWithConfig, Infer, RequestLoad, Fetch, Status,
// PurgeAll). Internal types are subject to change.
package manager

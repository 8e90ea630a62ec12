package types

// TaskType identifies the inference capability a model serves. Values are
// wire-stable: they appear in API paths and in persisted registry state.
type TaskType string

const (
	TaskText     TaskType = "text"
	TaskImage    TaskType = "image"
	TaskAudioTTS TaskType = "audio_tts"
	TaskAudioSTT TaskType = "audio_stt"
	TaskVideo    TaskType = "video"
)

// ParseTaskType maps a wire string to a TaskType. The boolean is false for
// strings outside the closed set; callers decide whether that is a 422 or
// a programming error.
func ParseTaskType(s string) (TaskType, bool) {
	switch TaskType(s) {
	case TaskText, TaskImage, TaskAudioTTS, TaskAudioSTT, TaskVideo:
		return TaskType(s), true
	}
	return "", false
}

// AllTaskTypes returns the closed set of task kinds in wire order.
func AllTaskTypes() []TaskType {
	return []TaskType{TaskText, TaskImage, TaskAudioTTS, TaskAudioSTT, TaskVideo}
}

// ModelState is the lifecycle state of a model in the registry.
type ModelState string

const (
	// StateNotPresent: no artifact on disk, nothing loaded.
	StateNotPresent ModelState = "not_present"
	// StateDownloading: an artifact transfer is in flight.
	StateDownloading ModelState = "downloading"
	// StateOnDisk: artifact cached locally, no memory held.
	StateOnDisk ModelState = "on_disk"
	// StateLoaded: resident in device memory, ready to serve.
	StateLoaded ModelState = "loaded"
	// StateFailed: the last download or load attempt failed. Not terminal;
	// the next request retries from the step that failed.
	StateFailed ModelState = "failed"
)

// ModelStatus is one row of the status report: registry state merged with
// what is actually on disk.
type ModelStatus struct {
	// Stable model identifier (e.g. a hub path).
	// example: meta-llama/Llama-3.2-1B
	ModelID string `json:"model_id" example:"meta-llama/Llama-3.2-1B"`
	// Task kind the model serves. Empty for artifacts known only from disk.
	// example: text
	TaskType TaskType `json:"task_type,omitempty" example:"text"`
	// Current lifecycle state.
	// example: loaded
	State ModelState `json:"state" example:"loaded"`
	// Device memory held by this model in MB. Zero unless loaded.
	// example: 2048
	VRAMMB float64 `json:"vram_mb" example:"2048"`
	// Last time the model served or finished loading (unix seconds).
	// Zero when never used.
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix,omitempty" example:"1700000000"`
}
